// Package label names clusters from their dominant sender domain, bulk
// markers and subject tokens.
package label

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/teemow/inboxtriage/internal/features"
	"github.com/teemow/inboxtriage/internal/mail"
)

// DefaultDominance is the share of a cluster a signal must reach to name it.
const DefaultDominance = 0.5

// bulkShare is the share of bulk-marked messages that makes a cluster a
// newsletter cluster regardless of sender.
const bulkShare = 0.5

const maxKeywords = 3

const (
	LabelMarketing = "Marketing & Newsletters"
	LabelCode      = "Code Repository Updates"
	LabelTeam      = "Team Communication"
	LabelPersonal  = "Personal Correspondence"
)

var (
	marketingHints = []string{"newsletter", "marketing", "promo", "deals"}
	codeHosts      = []string{"github", "gitlab", "bitbucket"}
	teamChat       = []string{"slack", "teams", "discord"}

	// Leading domain labels that name a bulk sender, as in news.acme.com.
	marketingSubdomains = map[string]bool{"news": true, "mail": true, "email": true, "info": true}

	freemail = map[string]bool{
		"gmail.com":      true,
		"googlemail.com": true,
		"yahoo.com":      true,
		"hotmail.com":    true,
		"outlook.com":    true,
		"live.com":       true,
		"icloud.com":     true,
		"me.com":         true,
		"aol.com":        true,
		"proton.me":      true,
		"protonmail.com": true,
		"gmx.de":         true,
		"gmx.net":        true,
		"web.de":         true,
		"fastmail.com":   true,
		"fastmail.fm":    true,
		"mailbox.org":    true,
		"posteo.de":      true,
		"zoho.com":       true,
		"zohomail.com":   true,
		"tutanota.com":   true,
		"tuta.io":        true,
		"hey.com":        true,
	}

	// Second-level labels that sit under a country code, as in example.co.uk.
	publicSecondLevel = map[string]bool{"co": true, "com": true, "org": true, "net": true, "ac": true, "gov": true}
)

// Config tunes label generation.
type Config struct {
	Dominance float64 `yaml:"dominance"`
}

// Info is the generated name and summary of one cluster.
type Info struct {
	Label          string
	Description    string
	Keywords       []string
	DominantDomain string
}

// Generator derives cluster labels. It holds no mutable state.
type Generator struct {
	dominance float64
}

// NewGenerator returns a Generator. A dominance outside (0, 1] falls back to
// DefaultDominance.
func NewGenerator(cfg Config) *Generator {
	d := cfg.Dominance
	if d <= 0 || d > 1 {
		d = DefaultDominance
	}
	return &Generator{dominance: d}
}

type count struct {
	key string
	n   int
}

// ranked orders counts by frequency, then alphabetically.
func ranked(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, n := range m {
		out = append(out, count{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}

// Label names the cluster made of fvs. msgs, when given, must be the same
// messages in the same order and are used to count distinct senders.
func (g *Generator) Label(msgs []mail.Message, fvs []features.FeatureVector) Info {
	n := len(fvs)
	if n == 0 {
		return Info{Label: mixed(0), Description: "0 messages"}
	}

	domains := make(map[string]int)
	tokens := make(map[string]int)
	bulk := 0
	for _, fv := range fvs {
		if fv.SenderDomain != "" {
			domains[fv.SenderDomain]++
		}
		for _, t := range fv.SubjectTokens {
			tokens[t]++
		}
		if fv.Bulk() {
			bulk++
		}
	}

	info := Info{}
	var domainShare float64
	if top := ranked(domains); len(top) > 0 {
		domainShare = float64(top[0].n) / float64(n)
		if domainShare >= g.dominance {
			info.DominantDomain = top[0].key
		}
	}

	minTokenCount := 2
	if n == 1 {
		minTokenCount = 1
	}
	var tokenShare float64
	for i, c := range ranked(tokens) {
		if c.n < minTokenCount || len(info.Keywords) == maxKeywords {
			break
		}
		if i == 0 {
			tokenShare = float64(c.n) / float64(n)
		}
		info.Keywords = append(info.Keywords, c.key)
	}

	info.Label = g.name(info, float64(bulk)/float64(n), tokenShare)
	if info.Label == "" {
		info.Label = mixed(n)
	}
	info.Description = describe(n, info.DominantDomain, senders(msgs, fvs))
	return info
}

func (g *Generator) name(info Info, bulk, tokenShare float64) string {
	if d := info.DominantDomain; d != "" {
		switch {
		case freemail[d]:
			return LabelPersonal
		case containsAny(d, codeHosts):
			return LabelCode
		case containsAny(d, teamChat):
			return LabelTeam
		case bulk > 0 && marketingDomain(d):
			return LabelMarketing
		}
	}
	if bulk >= bulkShare {
		return LabelMarketing
	}
	if len(info.Keywords) > 0 && tokenShare >= g.dominance {
		return title(info.Keywords[0]) + " Related"
	}
	if info.DominantDomain != "" {
		return title(orgName(info.DominantDomain)) + " Messages"
	}
	return ""
}

// marketingDomain reports whether a domain names a bulk sender, either by a
// hint anywhere in it or by a leading label such as news. or mail.
func marketingDomain(d string) bool {
	if containsAny(d, marketingHints) {
		return true
	}
	first, _, ok := strings.Cut(d, ".")
	return ok && marketingSubdomains[first]
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

func senders(msgs []mail.Message, fvs []features.FeatureVector) int {
	seen := make(map[string]struct{})
	if len(msgs) > 0 {
		for _, m := range msgs {
			seen[m.SenderAddress()] = struct{}{}
		}
		return len(seen)
	}
	for _, fv := range fvs {
		seen[fv.SenderDomain] = struct{}{}
	}
	return len(seen)
}

func describe(n int, domain string, senderCount int) string {
	switch {
	case n == 1 && domain != "":
		return "1 message from " + domain
	case domain != "":
		return fmt.Sprintf("%d messages, mostly from %s", n, domain)
	default:
		return fmt.Sprintf("%s from %s", plural(n, "message"), plural(senderCount, "sender"))
	}
}

func mixed(n int) string {
	return "Mixed (" + plural(n, "message") + ")"
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// orgName picks the organisation part of a domain: news.acme.com gives acme,
// shop.example.co.uk gives example.
func orgName(domain string) string {
	parts := strings.Split(domain, ".")
	switch {
	case len(parts) >= 3 && len(parts[len(parts)-1]) == 2 && publicSecondLevel[parts[len(parts)-2]]:
		return parts[len(parts)-3]
	case len(parts) >= 2:
		return parts[len(parts)-2]
	default:
		return parts[0]
	}
}

func title(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
