package cmd

import (
	"context"
	"fmt"

	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/demo"
	"github.com/teemow/inboxtriage/internal/gmail"
	"github.com/teemow/inboxtriage/internal/imap"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/mail"
	"github.com/teemow/inboxtriage/internal/mbox"
)

// openSession builds the mail session selected by src. The returned close
// function is never nil.
func openSession(ctx context.Context, src config.Source, logger logging.Logger) (mail.Session, func() error, error) {
	noop := func() error { return nil }

	switch src.Type {
	case config.SourceGmail:
		s, err := gmail.NewSessionForAccount(ctx, src.Account, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case config.SourceIMAP:
		s, err := imap.NewSession(src.IMAP, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case config.SourceMbox:
		s, err := mbox.NewSession(src.Mbox, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case config.SourceDemo:
		return demo.NewSession(src.Demo), noop, nil
	default:
		return nil, noop, fmt.Errorf("%w %q", config.ErrUnknownSource, src.Type)
	}
}
