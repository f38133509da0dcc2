package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/artisanconnect/backend/internal/alerts"
	"github.com/artisanconnect/backend/internal/apperr"
	"github.com/artisanconnect/backend/internal/bidding"
	"github.com/artisanconnect/backend/internal/catalog"
	"github.com/artisanconnect/backend/internal/escrow"
	"github.com/artisanconnect/backend/internal/lifecycle"
	"github.com/artisanconnect/backend/internal/rating"
)

// Handlers binds the engine to the HTTP surface. Alerts may be nil.
type Handlers struct {
	Store     catalog.Store
	Lifecycle *lifecycle.Controller
	Bidding   *bidding.Engine
	Ratings   *rating.Aggregator
	Alerts    *alerts.Client
}

func NewHandlers(store catalog.Store, lc *lifecycle.Controller, be *bidding.Engine, ra *rating.Aggregator, al *alerts.Client) *Handlers {
	return &Handlers{Store: store, Lifecycle: lc, Bidding: be, Ratings: ra, Alerts: al}
}

func fail(c echo.Context, err error) error {
	return c.JSON(apperr.HTTPStatus(err), echo.Map{"error": err.Error()})
}

func callerID(c echo.Context) (string, bool) {
	uid, ok := c.Get("user_id").(string)
	return uid, ok && uid != ""
}

// CreateJob - owner posts a new job
// POST /marketplace/jobs
func (h *Handlers) CreateJob(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req CreateJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	job, err := h.Lifecycle.PostJob(c.Request().Context(), uid, req.Title, req.Description, req.Category, req.LGA, req.Budget)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, job)
}

// ListJobs - public job discovery, defaults to open jobs
// GET /marketplace/jobs?status=&category=&lga=
func (h *Handlers) ListJobs(c echo.Context) error {
	f := catalog.JobFilter{
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
		LGA:      c.QueryParam("lga"),
	}
	if f.Status == "" {
		f.Status = catalog.JobOpen
	}

	jobs, err := h.Store.ListJobs(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch jobs"})
	}
	if jobs == nil {
		jobs = []catalog.Job{}
	}
	return c.JSON(http.StatusOK, echo.Map{"jobs": jobs})
}

// GetJob - public single-job read
// GET /marketplace/jobs/:id
func (h *Handlers) GetJob(c echo.Context) error {
	job, err := h.Store.GetJob(c.Request().Context(), c.Param("id"))
	if err == catalog.ErrNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
	}
	return c.JSON(http.StatusOK, job)
}

// CreateBid - artisan bids on an open job
// POST /marketplace/jobs/:id/bids
func (h *Handlers) CreateBid(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobID := c.Param("id")
	var req CreateBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	bid, err := h.Bidding.SubmitBid(c.Request().Context(), jobID, uid, req.Amount, req.Proposal)
	if err != nil {
		return fail(c, err)
	}

	// Notify the job owner (best-effort)
	if h.Alerts != nil {
		if job, jerr := h.Store.GetJob(c.Request().Context(), jobID); jerr == nil {
			if owner, oerr := h.Store.GetUser(c.Request().Context(), job.OwnerID); oerr == nil {
				_ = h.Alerts.EnqueueBidReceived(jobID, bid.ID, owner.Email, bid.Amount)
			}
		}
	}

	return c.JSON(http.StatusCreated, bid)
}

// ListJobBids - job owner sees all bids, an artisan sees their own
// GET /marketplace/jobs/:id/bids
func (h *Handlers) ListJobBids(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	bids, err := h.Bidding.ListBids(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return fail(c, err)
	}
	if bids == nil {
		bids = []catalog.Bid{}
	}
	return c.JSON(http.StatusOK, echo.Map{"bids": bids})
}

// MyBids - artisan's own bids across jobs
// GET /marketplace/bids/me
func (h *Handlers) MyBids(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	bids, err := h.Bidding.BidsByArtisan(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch bids"})
	}
	if bids == nil {
		bids = []catalog.Bid{}
	}
	return c.JSON(http.StatusOK, echo.Map{"bids": bids})
}

// AcceptBid - owner accepts a bid; job goes IN_PROGRESS and escrow opens
// POST /marketplace/jobs/:id/accept
func (h *Handlers) AcceptBid(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobID := c.Param("id")
	var req AcceptBidRequest
	if err := c.Bind(&req); err != nil || req.BidID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bid_id"})
	}

	job, err := h.Lifecycle.AcceptBid(c.Request().Context(), jobID, req.BidID, uid)
	if err != nil {
		return fail(c, err)
	}

	if h.Alerts != nil {
		if artisan, aerr := h.Store.GetUser(c.Request().Context(), job.AssignedArtisanID); aerr == nil {
			_ = h.Alerts.EnqueueBidAccepted(jobID, req.BidID, artisan.Email)
		}
	}

	return c.JSON(http.StatusOK, job)
}

// CompleteJob - owner or assigned artisan confirms completion; escrow settles
// POST /marketplace/jobs/:id/complete
func (h *Handlers) CompleteJob(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobID := c.Param("id")
	var req CompleteJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Rating == 0 {
		req.Rating = 5
	}

	job, err := h.Lifecycle.MarkCompleted(c.Request().Context(), jobID, uid, req.Rating, req.Comment)
	if err != nil {
		return fail(c, err)
	}

	if h.Alerts != nil {
		if artisan, aerr := h.Store.GetUser(c.Request().Context(), job.AssignedArtisanID); aerr == nil {
			_ = h.Alerts.EnqueueJobCompleted(jobID, artisan.Email)
		}
	}

	return c.JSON(http.StatusOK, job)
}

// OpenDispute - owner or assigned artisan freezes the job in DISPUTED
// POST /marketplace/jobs/:id/dispute
func (h *Handlers) OpenDispute(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobID := c.Param("id")
	var req DisputeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	job, err := h.Lifecycle.RaiseDispute(c.Request().Context(), jobID, uid, req.Reason)
	if err != nil {
		return fail(c, err)
	}

	if h.Alerts != nil {
		_ = h.Alerts.EnqueueDisputeOpened(jobID, uid, req.Reason)
	}

	return c.JSON(http.StatusOK, job)
}

// ResolveDispute - admin closes a dispute with an outcome
// POST /admin/jobs/:id/resolve
func (h *Handlers) ResolveDispute(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobID := c.Param("id")
	var req ResolveRequest
	if err := c.Bind(&req); err != nil || req.Outcome == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid outcome"})
	}

	job, err := h.Lifecycle.ResolveDispute(c.Request().Context(), jobID, req.Outcome, uid)
	if err != nil {
		return fail(c, err)
	}

	if h.Alerts != nil {
		_ = h.Alerts.EnqueueDisputeResolved(jobID, req.Outcome)
	}

	return c.JSON(http.StatusOK, job)
}

// GetEscrow - participants and admins read a job's escrow record
// GET /marketplace/jobs/:id/escrow
func (h *Handlers) GetEscrow(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	jobID := c.Param("id")
	job, err := h.Store.GetJob(ctx, jobID)
	if err == catalog.ErrNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch job"})
	}

	caller, err := h.Store.GetUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if uid != job.OwnerID && uid != job.AssignedArtisanID && caller.Role != catalog.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this job"})
	}

	rec, err := escrow.Get(ctx, h.Store, jobID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// GetArtisanRating - public rating read; unreviewed artisans report 5.0
// GET /artisans/:id/rating
func (h *Handlers) GetArtisanRating(c echo.Context) error {
	state, err := h.Ratings.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch rating"})
	}
	return c.JSON(http.StatusOK, state)
}
