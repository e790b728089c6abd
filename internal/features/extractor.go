package features

import (
	"hash/fnv"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/teemow/inboxtriage/internal/mail"
)

// marketingMailers are X-Mailer substrings of bulk sending platforms.
var marketingMailers = []string{
	"mailchimp", "sendgrid", "mailgun", "sendinblue", "brevo", "klaviyo",
	"hubspot", "marketo", "mailjet", "sparkpost", "mandrill", "campaign monitor",
	"constant contact", "customer.io", "braze", "iterable", "pardot",
}

// noReplyLocalParts are sender local parts used by automated senders.
var noReplyLocalParts = []string{
	"noreply", "no-reply", "no_reply", "donotreply", "do-not-reply",
	"newsletter", "news", "notifications", "notification", "mailer-daemon",
	"marketing", "promo", "deals", "updates",
}

// Extractor computes FeatureVectors. It is safe for concurrent use.
type Extractor struct {
	dimensions    int
	subjectTokens int
	stop          map[string]struct{}
}

// NewExtractor returns an Extractor for cfg, filling unset fields with defaults.
func NewExtractor(cfg Config) *Extractor {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.SubjectTokens <= 0 {
		cfg.SubjectTokens = DefaultSubjectTokens
	}
	return &Extractor{
		dimensions:    cfg.Dimensions,
		subjectTokens: cfg.SubjectTokens,
		stop:          buildStopSet(cfg.StopWords),
	}
}

// Dimensions returns the embedding length produced by this extractor.
func (e *Extractor) Dimensions() int {
	return e.dimensions
}

// Extract derives the FeatureVector for m. Missing subject, body or sender
// yield empty tags and a zero embedding rather than an error.
func (e *Extractor) Extract(m mail.Message) FeatureVector {
	subjectTokens := tokenize(NormalizeSubject(m.Subject), e.stop)
	bodyTokens := tokenize(StripQuoted(m.Excerpt), e.stop)

	return FeatureVector{
		MessageID:     m.ID,
		Embedding:     e.embed(subjectTokens, bodyTokens),
		SenderDomain:  m.SenderDomain(),
		BulkMarkers:   detectBulkMarkers(m),
		SubjectTokens: leadingDistinct(subjectTokens, e.subjectTokens),
	}
}

// ExtractAll extracts every message, preserving order.
func (e *Extractor) ExtractAll(msgs []mail.Message) []FeatureVector {
	out := make([]FeatureVector, len(msgs))
	for i, m := range msgs {
		out[i] = e.Extract(m)
	}
	return out
}

// embed builds a hashed term-frequency vector. Each token lands in one
// bucket with a sign taken from a second hash bit, which keeps collisions
// from systematically inflating similarity.
func (e *Extractor) embed(subject, body []string) []float64 {
	v := make([]float64, e.dimensions)
	add := func(tokens []string, weight float64) {
		for _, tok := range tokens {
			h := fnv.New64a()
			_, _ = h.Write([]byte(tok))
			sum := h.Sum64()
			idx := int(sum % uint64(e.dimensions))
			if (sum>>63)&1 == 1 {
				v[idx] -= weight
			} else {
				v[idx] += weight
			}
		}
	}
	add(subject, subjectWeight)
	add(body, bodyWeight)

	if norm := floats.Norm(v, 2); norm > 0 {
		floats.Scale(1/norm, v)
	}
	return v
}

func leadingDistinct(tokens []string, n int) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for _, t := range tokens {
		if len(out) == n {
			break
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func detectBulkMarkers(m mail.Message) []string {
	var markers []string

	if m.Header("List-Unsubscribe") != "" {
		markers = append(markers, MarkerListUnsubscribe)
	}
	if m.Header("List-Id") != "" {
		markers = append(markers, MarkerListID)
	}
	switch strings.ToLower(strings.TrimSpace(m.Header("Precedence"))) {
	case "bulk", "list", "junk":
		markers = append(markers, MarkerPrecedence)
	}
	if as := strings.ToLower(strings.TrimSpace(m.Header("Auto-Submitted"))); as != "" && as != "no" {
		markers = append(markers, MarkerAutoSubmitted)
	}
	if mailer := strings.ToLower(m.Header("X-Mailer")); mailer != "" {
		for _, tool := range marketingMailers {
			if strings.Contains(mailer, tool) {
				markers = append(markers, MarkerMarketingMailer)
				break
			}
		}
	}
	if addr := m.SenderAddress(); addr != "" {
		local, _, _ := strings.Cut(addr, "@")
		for _, p := range noReplyLocalParts {
			if local == p || strings.HasPrefix(local, p+"+") || strings.HasPrefix(local, p+".") {
				markers = append(markers, MarkerNoReplySender)
				break
			}
		}
	}

	sort.Strings(markers)
	return markers
}
