// Package demo provides an in-memory mail session filled with a
// deterministic synthetic inbox, for trying inboxtriage without an account.
package demo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/teemow/inboxtriage/internal/mail"
)

// DefaultSize is the number of generated messages.
const DefaultSize = 150

// replyShare is the fraction of messages generated as replies.
const replyShare = 0.3

// Config configures the synthetic inbox.
type Config struct {
	Seed uint64 `yaml:"seed"`
	Size int    `yaml:"size"`
	// Now anchors the timestamps; zero means time.Now().
	Now time.Time `yaml:"-"`
}

type sender struct {
	name, address string
}

type category struct {
	name     string
	senders  []sender
	subjects []string
	bodies   []string
	headers  []string
}

var categories = []category{
	{
		name: "newsletters",
		senders: []sender{
			{"Tech Weekly", "digest@newsletter.techweekly.io"},
			{"Design Daily", "hello@news.designdaily.com"},
		},
		subjects: []string{
			"This week in distributed systems",
			"Issue #%d: the state of observability",
			"Your weekly digest of design patterns",
		},
		bodies: []string{
			"Welcome to this week's issue. We collected the most interesting articles about databases and observability.",
			"In this issue: a deep dive into consensus, five tools we love, and a reader question about caching.",
		},
		headers: []string{"List-Unsubscribe", "<mailto:unsubscribe@newsletter.example>", "List-Id", "<weekly.newsletter.example>"},
	},
	{
		name: "code",
		senders: []sender{
			{"GitHub", "notifications@github.com"},
			{"GitLab", "gitlab@gitlab.com"},
		},
		subjects: []string{
			"[acme/api] Pull request #%d: fix pagination in search endpoint",
			"[acme/web] Build failed on main",
			"[acme/api] Issue #%d: flaky integration test",
		},
		bodies: []string{
			"A new review was requested on this pull request. View it on the web to reply.",
			"The workflow run failed for commit on branch main. Check the logs for details.",
		},
		headers: []string{"List-Id", "<api.acme.github.com>", "X-GitHub-Reason", "review_requested"},
	},
	{
		name: "work",
		senders: []sender{
			{"Dana Smith", "dana.smith@acme-corp.com"},
			{"Lee Wong", "lee.wong@acme-corp.com"},
			{"Sam Patel", "sam.patel@acme-corp.com"},
		},
		subjects: []string{
			"Sprint planning notes",
			"Quarterly roadmap review",
			"Standup moved to 10:30",
			"Budget proposal for the platform team",
		},
		bodies: []string{
			"Attached are the notes from today's planning meeting. Please add your estimates before Thursday.",
			"Can we review the roadmap draft together this week? I blocked some time on Wednesday afternoon.",
		},
	},
	{
		name: "finance",
		senders: []sender{
			{"First Bank", "no-reply@statements.firstbank.example"},
			{"Stripe", "invoices@stripe.com"},
		},
		subjects: []string{
			"Your monthly statement is available",
			"Invoice #%d payment received",
			"Your invoice for account renewal",
		},
		bodies: []string{
			"Your statement for the last billing period is ready. Sign in to your account to view it.",
			"We received your payment. A receipt is attached for your records.",
		},
		headers: []string{"Auto-Submitted", "auto-generated"},
	},
	{
		name: "social",
		senders: []sender{
			{"LinkedIn", "notifications-noreply@linkedin.com"},
			{"Meetup", "info@meetup.com"},
		},
		subjects: []string{
			"You have %d new connection requests",
			"New event in your group: Go meetup",
			"Someone viewed your profile",
		},
		bodies: []string{
			"People are looking at your profile. See who viewed it and grow your network.",
			"A new event was scheduled in a group you belong to. RSVP to save your spot.",
		},
		headers: []string{"List-Unsubscribe", "<https://social.example/unsubscribe>"},
	},
	{
		name: "shopping",
		senders: []sender{
			{"ShopMart", "orders@shopmart.com"},
			{"ShopMart Deals", "deals@promo.shopmart.com"},
		},
		subjects: []string{
			"Your order #%d has shipped",
			"Flash sale: %d%% off everything",
			"Items in your cart are selling fast",
		},
		bodies: []string{
			"Good news! Your order is on its way. Track your package with the link below.",
			"Limited time only. Shop our biggest sale of the season before it ends tonight.",
		},
		headers: []string{"List-Unsubscribe", "<mailto:leave@shopmart.com>", "Precedence", "bulk"},
	},
	{
		name: "personal",
		senders: []sender{
			{"Alex", "alex.miller@gmail.com"},
			{"Jordan", "jordan.k@gmail.com"},
			{"Mum", "mum.family@gmail.com"},
		},
		subjects: []string{
			"Dinner on Friday?",
			"Photos from the trip",
			"Happy birthday!",
			"Weekend plans",
		},
		bodies: []string{
			"Are you free this weekend? We were thinking about trying the new place downtown.",
			"Here are the photos from last weekend. The hike was amazing, we should do it again.",
		},
	},
}

// Session is an in-memory mail.Session. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	messages []mail.Message
	archived map[string]bool
}

var _ mail.Session = (*Session)(nil)

// NewSession generates the inbox described by cfg. Equal configs give equal
// inboxes.
func NewSession(cfg Config) *Session {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	return &Session{
		messages: generate(cfg),
		archived: make(map[string]bool),
	}
}

func generate(cfg Config) []mail.Message {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5eed))
	received := cfg.Now.Truncate(time.Minute)

	msgs := make([]mail.Message, cfg.Size)
	for i := range msgs {
		c := categories[rng.IntN(len(categories))]
		s := c.senders[rng.IntN(len(c.senders))]
		subject := c.subjects[rng.IntN(len(c.subjects))]
		if strings.Contains(subject, "%d") {
			subject = fmt.Sprintf(subject, 10+rng.IntN(990))
		}
		body := c.bodies[rng.IntN(len(c.bodies))]

		if rng.Float64() < replyShare {
			subject = "Re: " + subject
			body = "Thanks, sounds good to me.\n\nOn " + received.Add(-24*time.Hour).Format("Mon, Jan 2, 2006") +
				", " + s.name + " wrote:\n> " + body
		}

		headers := mail.NewHeaders(c.headers...)
		id := fmt.Sprintf("demo-%04d", i+1)
		headers["Message-Id"] = "<" + id + "@demo.inboxtriage>"

		msgs[i] = mail.Message{
			ID:       id,
			From:     fmt.Sprintf("%s <%s>", s.name, s.address),
			Subject:  subject,
			Excerpt:  body,
			Received: received,
			Headers:  headers,
		}
		received = received.Add(-time.Duration(5+rng.IntN(180)) * time.Minute)
	}
	return msgs
}

// FetchRecent returns up to limit unarchived messages, most recent first.
func (s *Session) FetchRecent(ctx context.Context, limit int) ([]mail.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]mail.Message, 0, min(limit, len(s.messages)))
	for _, m := range s.messages {
		if len(out) == limit {
			break
		}
		if !s.archived[m.ID] {
			out = append(out, m)
		}
	}
	return out, nil
}

// ArchiveOne hides id from later fetches. Archiving an archived message
// succeeds.
func (s *Session) ArchiveOne(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.ID == id {
			s.archived[id] = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", mail.ErrNotFound, id)
}

// Remaining returns the number of unarchived messages.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages) - len(s.archived)
}
