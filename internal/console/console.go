// Package console is the line-oriented front-end: each input line is a
// command, each reply is plain text.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"MarketTraffic/internal/controller"
	"MarketTraffic/internal/export"
	"MarketTraffic/internal/format"
	"MarketTraffic/internal/model"
)

const helpText = `Available commands:
  table                 show the tracked symbols
  search <query>        search for symbols
  add <code> [name]     track a symbol (crypto as BTC/USDT)
  detail <code>         show one symbol, following live trades
  close                 close the detail view
  view traffic|news     switch the active view
  news                  reload market news
  export                write the table to CSV
  status                feed and table status
  help                  this text
`

// Console dispatches commands to a Controller.
type Console struct {
	Ctrl *controller.Controller
	Log  *zap.Logger

	now func() time.Time
}

// New creates a Console.
func New(ctrl *controller.Controller, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{Ctrl: ctrl, Log: log, now: time.Now}
}

// Run reads commands from r until EOF or ctx is cancelled and writes each
// reply to w.
func (c *Console) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("read commands: %w", err)
			}
			return nil
		case line := <-lines:
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			c.Log.Debug("received command", zap.String("command", line))
			if reply := c.HandleCommand(ctx, line); reply != "" {
				if _, err := io.WriteString(w, reply); err != nil {
					return fmt.Errorf("write reply: %w", err)
				}
			}
		}
	}
}

// HandleCommand processes a command line and returns the reply.
func (c *Console) HandleCommand(ctx context.Context, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return helpText
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "table":
		return format.Table(c.Ctrl.Records())

	case "search":
		if len(args) == 0 {
			return "Usage: search <query>\n"
		}
		return format.SearchResults(c.Ctrl.Search(ctx, strings.Join(args, " ")))

	case "add":
		if len(args) == 0 {
			return "Usage: add <code> [name]\n"
		}
		raw := strings.ToUpper(args[0])
		name := strings.Join(args[1:], " ")
		rec, ok := c.Ctrl.AddSymbol(ctx, raw, name)
		if !ok {
			return format.SearchResults(c.Ctrl.SearchState().Results)
		}
		return fmt.Sprintf("Added %s (%s) at %s.\n", format.DisplayCode(rec.Code), rec.Name, format.Price(rec.CurrentPrice))

	case "detail":
		if len(args) == 0 {
			return "Usage: detail <code>\n"
		}
		if !c.Ctrl.ShowDetail(strings.ToUpper(args[0])) {
			return fmt.Sprintf("%s is not in the table.\n", args[0])
		}
		rec, _ := c.Ctrl.Detail()
		return format.Detail(rec)

	case "close":
		c.Ctrl.CloseDetail()
		return "Detail closed.\n"

	case "view":
		if len(args) != 1 {
			return "Usage: view traffic|news\n"
		}
		if err := c.Ctrl.SwitchView(ctx, model.View(strings.ToLower(args[0]))); err != nil {
			return "Usage: view traffic|news\n"
		}
		return c.render()

	case "news":
		c.Ctrl.RefreshNews(ctx)
		return c.renderNews()

	case "export":
		path, err := c.Ctrl.ExportCSV(c.now())
		if errors.Is(err, export.ErrEmpty) {
			return "Table data is empty.\n"
		}
		if err != nil {
			return fmt.Sprintf("Export failed: %v\n", err)
		}
		return fmt.Sprintf("Exported to %s\n", path)

	case "status":
		return fmt.Sprintf("Feed: %s | Symbols: %d | View: %s\n",
			c.Ctrl.FeedState(), len(c.Ctrl.Records()), c.Ctrl.View())

	default:
		return helpText
	}
}

func (c *Console) render() string {
	if c.Ctrl.View() == model.ViewNews {
		return c.renderNews()
	}
	return format.Table(c.Ctrl.Records())
}

func (c *Console) renderNews() string {
	n := c.Ctrl.News()
	switch {
	case n.Loading:
		return "Loading news...\n"
	case n.Message != "":
		return n.Message + "\n"
	default:
		return format.News(n.Items)
	}
}
