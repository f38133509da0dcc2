package alerts

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

// Server consumes queued notification tasks and delivers them by email.
type Server struct {
	inner *asynq.Server
}

// NewServer starts the worker loop in the background.
func NewServer() *Server {
	opts := asynq.RedisClientOpt{Addr: redisAddr()}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, handleWelcomeEmail)
	mux.HandleFunc(TaskBidReceived, handleBidReceived)
	mux.HandleFunc(TaskBidAccepted, handleBidAccepted)
	mux.HandleFunc(TaskJobCompleted, handleJobCompleted)
	mux.HandleFunc(TaskDisputeOpened, handleDispute)
	mux.HandleFunc(TaskDisputeResolved, handleDispute)

	srv := asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
		},
	})
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Printf("Asynq server stopped: %v", err)
		}
	}()

	log.Printf("Asynq initialized (addr=%s)", redisAddr())
	return &Server{inner: srv}
}

func (s *Server) Shutdown() {
	s.inner.Shutdown()
}

func handleWelcomeEmail(_ context.Context, t *asynq.Task) error {
	var p WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] WelcomeEmail send failed: %v", err)
		return err
	}
	log.Printf("[notify] WelcomeEmail sent -> to=%s user=%s", p.Email, p.UserID)
	return nil
}

func handleBidReceived(_ context.Context, t *asynq.Task) error {
	var p BidReceivedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] BidReceived send failed: %v", err)
		return err
	}
	log.Printf("[notify] BidReceived sent -> job=%s to=%s", p.JobID, p.Email)
	return nil
}

func handleBidAccepted(_ context.Context, t *asynq.Task) error {
	var p BidAcceptedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] BidAccepted send failed: %v", err)
		return err
	}
	log.Printf("[notify] BidAccepted sent -> job=%s to=%s", p.JobID, p.Email)
	return nil
}

func handleJobCompleted(_ context.Context, t *asynq.Task) error {
	var p JobCompletedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] JobCompleted send failed: %v", err)
		return err
	}
	log.Printf("[notify] JobCompleted sent -> job=%s to=%s", p.JobID, p.Email)
	return nil
}

func handleDispute(_ context.Context, t *asynq.Task) error {
	var p DisputePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] Dispute alert send failed: %v", err)
		return err
	}
	log.Printf("[notify] Dispute alert sent -> job=%s", p.JobID)
	return nil
}
