package alerts

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues best-effort notification emails onto the task queue.
// Handlers tolerate a nil client.
type Client struct {
	inner *asynq.Client
}

func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		return host + ":" + port
	}
	return "127.0.0.1:6379"
}

func NewClient() *Client {
	return &Client{inner: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr()})}
}

func (c *Client) Close() error {
	return c.inner.Close()
}

func (c *Client) enqueue(taskType string, payload any) error {
	b, _ := json.Marshal(payload)
	_, err := c.inner.Enqueue(asynq.NewTask(taskType, b), asynq.Queue("emails"))
	return err
}

// EnqueueWelcomeEmail greets a new user after signup
func (c *Client) EnqueueWelcomeEmail(userID, email, name string) error {
	env := EmailEnvelope{
		To:      email,
		Subject: fmt.Sprintf("Welcome to ArtisanConnect, %s!", name),
		Body:    fmt.Sprintf("Hi %s, thanks for joining ArtisanConnect.", name),
	}
	return c.enqueue(TaskWelcomeEmail, WelcomeEmailPayload{
		UserID: userID, Name: name, Email: email, Envelope: env, SentAt: time.Now(),
	})
}

// EnqueueBidReceived notifies a job owner about a new bid
func (c *Client) EnqueueBidReceived(jobID, bidID, ownerEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      ownerEmail,
		Subject: "New bid on your job",
		Body:    fmt.Sprintf("An artisan placed a bid of %d on job %s.", amount, jobID),
	}
	return c.enqueue(TaskBidReceived, BidReceivedPayload{
		JobID: jobID, BidID: bidID, Email: ownerEmail, Amount: amount, Envelope: env, SentAt: time.Now(),
	})
}

// EnqueueBidAccepted notifies the winning artisan
func (c *Client) EnqueueBidAccepted(jobID, bidID, artisanEmail string) error {
	env := EmailEnvelope{
		To:      artisanEmail,
		Subject: "Your bid was accepted",
		Body:    fmt.Sprintf("Your bid on job %s was accepted. Funds are held in escrow until completion.", jobID),
	}
	return c.enqueue(TaskBidAccepted, BidAcceptedPayload{
		JobID: jobID, BidID: bidID, Email: artisanEmail, Envelope: env, SentAt: time.Now(),
	})
}

// EnqueueJobCompleted notifies the artisan that escrow was released
func (c *Client) EnqueueJobCompleted(jobID, artisanEmail string) error {
	env := EmailEnvelope{
		To:      artisanEmail,
		Subject: "Job completed",
		Body:    fmt.Sprintf("Job %s is complete and the escrowed payment has been released.", jobID),
	}
	return c.enqueue(TaskJobCompleted, JobCompletedPayload{
		JobID: jobID, Email: artisanEmail, Envelope: env, SentAt: time.Now(),
	})
}

// EnqueueDisputeOpened alerts admins that a dispute needs resolution
func (c *Client) EnqueueDisputeOpened(jobID, filerID, reason string) error {
	env := EmailEnvelope{To: adminInbox(), Subject: "Dispute opened", Body: reason}
	return c.enqueue(TaskDisputeOpened, DisputePayload{
		JobID: jobID, FilerID: filerID, Detail: reason, Envelope: env, SentAt: time.Now(),
	})
}

// EnqueueDisputeResolved records the outcome for the admin trail
func (c *Client) EnqueueDisputeResolved(jobID, outcome string) error {
	env := EmailEnvelope{To: adminInbox(), Subject: "Dispute resolved", Body: outcome}
	return c.enqueue(TaskDisputeResolved, DisputePayload{
		JobID: jobID, Detail: outcome, Envelope: env, SentAt: time.Now(),
	})
}

func adminInbox() string {
	if to := os.Getenv("ADMIN_EMAIL"); to != "" {
		return to
	}
	return "admin@artisanconnect.local"
}
