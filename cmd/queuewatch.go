package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"

	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
	wsmarshaller "github.com/virtuolot/showroom-assist-service/internal/handler/marshaller/ws"
)

// queuewatchCmd is the floor manager's terminal dashboard. It joins the
// monitor channel like any representative frontend and renders every
// queue_update snapshot it receives.
func queuewatchCmd() *cli.Command {
	return &cli.Command{
		Name:    "queuewatch",
		Aliases: []string{"qw"},
		Usage:   "Live terminal dashboard of the call queue",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Base websocket address of a running server",
				Value: "ws://localhost:3000",
			},
		},
		Action: func(c *cli.Context) error {
			return runQueueWatch(c.Context, c.String("addr"))
		},
	}
}

// monitorFrame is the client-side union of the frames the dashboard reads.
type monitorFrame struct {
	Type    string               `json:"type"`
	Queue   []model.QueueSummary `json:"queue"`
	Code    string               `json:"code"`
	Message string               `json:"message"`
}

func runQueueWatch(ctx context.Context, endpoint string) error {
	observerID := "queuewatch-" + uuid.NewString()[:8]

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, endpoint+"/api/ws/calls/monitor", nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %s)", endpoint, err, resp.Status)
		}
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	// Identify like a representative frontend; the first queue_update
	// arrives right after the ack.
	if err := conn.WriteJSON(map[string]string{
		"type":       wsmarshaller.TypeRepConnect,
		"salesRepId": observerID,
	}); err != nil {
		return fmt.Errorf("send connect frame: %w", err)
	}

	updates := make(chan []model.QueueSummary, 8)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var f monitorFrame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			switch f.Type {
			case wsmarshaller.TypeQueueUpdate:
				select {
				case updates <- f.Queue:
				default: // renderer is behind; a fresher snapshot follows
				}
			case wsmarshaller.TypeError:
				readErr <- fmt.Errorf("server rejected watcher: %s (%s)", f.Message, f.Code)
				return
			}
		}
	}()

	if err := ui.Init(); err != nil {
		return fmt.Errorf("init terminal ui: %w", err)
	}
	defer ui.Close()

	header := widgets.NewParagraph()
	header.Title = "showroom queuewatch"
	header.Text = fmt.Sprintf("connecting to %s as %s ...", endpoint, observerID)

	table := widgets.NewTable()
	table.Title = "call queue"
	table.RowSeparator = false
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.Rows = [][]string{queueHeaderRow()}

	layout := func(width, height int) {
		header.SetRect(0, 0, width, 3)
		table.SetRect(0, 3, width, height)
	}
	layout(ui.TerminalDimensions())
	ui.Render(header, table)

	var (
		queue  []model.QueueSummary
		lastAt time.Time
	)
	render := func() {
		header.Text = headerLine(endpoint, observerID, queue, lastAt)
		table.Rows = queueRows(queue)
		ui.Render(header, table)
	}

	uiEvents := ui.PollEvents()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				layout(payload.Width, payload.Height)
				render()
			}

		case q := <-updates:
			queue = q
			lastAt = time.Now()
			render()

		case <-ticker.C:
			// Keeps the "updated Ns ago" stamp moving between snapshots.
			render()

		case err := <-readErr:
			return fmt.Errorf("monitor channel lost: %w", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func queueHeaderRow() []string {
	return []string{"#", "SHOPPER", "STATUS", "REP", "MIC"}
}

func queueRows(queue []model.QueueSummary) [][]string {
	rows := [][]string{queueHeaderRow()}
	for i, s := range queue {
		status := "online"
		if !s.IsConnected {
			status = "offline"
			if s.TimeSinceDisconnectedSeconds != nil {
				status = fmt.Sprintf("offline %ds", *s.TimeSinceDisconnectedSeconds)
			}
		}
		rep := "-"
		if s.AssignedRepID != nil {
			rep = *s.AssignedRepID
		}
		mic := "no"
		if s.HasMicrophone {
			mic = "yes"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			s.ShopperID,
			status,
			rep,
			mic,
		})
	}
	return rows
}

func headerLine(endpoint, observerID string, queue []model.QueueSummary, lastAt time.Time) string {
	waiting, inCall := 0, 0
	for _, s := range queue {
		switch {
		case s.AssignedRepID != nil:
			inCall++
		case s.IsConnected:
			waiting++
		}
	}

	stamp := "waiting for first snapshot"
	if !lastAt.IsZero() {
		stamp = fmt.Sprintf("updated %ds ago", int(time.Since(lastAt).Seconds()))
	}

	return fmt.Sprintf("%s as %s | %d shoppers (%d waiting, %d in call) | %s | q to quit",
		endpoint, observerID, len(queue), waiting, inCall, stamp)
}
