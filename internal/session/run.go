package session

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/glove"
)

// Run feeds frames from src into the session until ctx is done or the
// source is exhausted or closed. Bad frames are logged and skipped.
func (s *Session) Run(ctx context.Context, src glove.Source) error {
	log.Printf("Session started for %s", device.Name(s.dev))
	defer log.Printf("Session stopped for %s", device.Name(s.dev))

	for {
		frame, err := src.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, glove.ErrClosed):
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}

		if _, err := s.Feed(frame); err != nil {
			log.Printf("Error posing frame: %v", err)
		}
	}
}
