package handlers

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/idpa-match/internal/live"
)

const keepAliveInterval = 15 * time.Second

// LiveTournament handles GET /api/v1/live/tournaments/:id.
// It streams every score change for the tournament as a server-sent event
// ("event: score"), with a comment line every 15s to keep proxies from closing
// the connection.
func LiveTournament(hub *live.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tournamentID, err := paramUUID(c, "id")
		if err != nil {
			return badRequest(c, "invalid tournament id")
		}

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		client := live.NewClient(tournamentID)
		hub.Register(client)

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer hub.Unregister(client)

			ticker := time.NewTicker(keepAliveInterval)
			defer ticker.Stop()

			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case data, ok := <-client.Send:
					if !ok {
						return
					}
					fmt.Fprintf(w, "event: score\ndata: %s\n\n", data)
				case <-ticker.C:
					w.WriteString(":\n\n")
				}
				// A flush error means the spectator went away.
				if err := w.Flush(); err != nil {
					return
				}
			}
		})
		return nil
	}
}
