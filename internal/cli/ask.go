// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/jeranaias/fintrack-tui/internal/charts"
	"github.com/jeranaias/fintrack-tui/internal/logging"
	"github.com/jeranaias/fintrack-tui/internal/model"
	"github.com/jeranaias/fintrack-tui/internal/stream"
	"github.com/jeranaias/fintrack-tui/internal/ui/components"
	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

func newAskCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the assistant one question and print the answer",
		Long: `Sends one question on the configured thread and prints the answer as it
streams. Without arguments the question is read from stdin.

Tool results that describe spending are drawn as charts.`,
		Example: `  fintrack ask "how much did I spend on food in March?"
  echo "top categories this year" | fintrack ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := readQuestion(a, cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}

			width := min(GetTerminalWidth()-2, 100)
			p := &askPrinter{
				w:        cmd.OutOrStdout(),
				log:      model.NewLog(),
				opts:     charts.Options{Width: width, Format: a.format},
				maxLines: a.cfg.Chat.MaxResultLines,
			}
			if !raw && IsStdoutTTY() {
				dark := styles.NewTheme(a.cfg.UI.Theme).IsDark
				p.code = components.NewJSON(dark, GetColorProfile() == termenv.TrueColor)
				if a.cfg.Chat.RenderMarkdown {
					p.md = components.NewMarkdown(dark)
				}
			} else {
				p.code = components.NewJSON(true, false)
				p.plain = true
			}

			client := stream.NewClient(a.cfg.API.BaseURL).
				WithAuthorizer(a.client).
				WithLogger(logging.Component(a.logger, "stream"))

			if !p.plain {
				p.waiting = startSpinner(p.w, styles.DotsSpinner, "Thinking")
			}

			var streamErr error
			ctx := cmd.Context()
			sub := client.Open(ctx, stream.Request{Query: question, ThreadID: a.cfg.Chat.ThreadID}, stream.Handlers{
				OnEvent: p.event,
				OnError: func(err error) { streamErr = err },
			})
			<-sub.Done()
			p.stopWaiting()
			p.flush()

			switch {
			case streamErr != nil:
				return &CommandError{Command: "ask", Err: streamErr}
			case ctx.Err() != nil || sub.Cancelled():
				return errCancelled
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print text fragments as they arrive, without markdown")
	return cmd
}

// readQuestion joins the arguments, or reads stdin when there are none.
func readQuestion(a *app, in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		q := strings.TrimSpace(strings.Join(args, " "))
		if q == "" {
			return "", usageErrorf("question is empty")
		}
		return q, nil
	}
	if a.stdin == os.Stdin && IsTTY() {
		return "", usageErrorf("no question given, pass it as an argument or on stdin")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	q := strings.TrimSpace(string(data))
	if q == "" {
		return "", usageErrorf("question is empty")
	}
	return q, nil
}

// askPrinter writes a streamed answer as plain terminal output. Events
// arrive on the stream's reader goroutine in order; flush runs after the
// stream is done.
type askPrinter struct {
	w        io.Writer
	log      *model.Log
	md       *components.Markdown
	code     components.JSON
	opts     charts.Options
	maxLines int

	// plain prints assistant fragments as they arrive.
	plain   bool
	pending *model.AIMessage

	// waiting stops the spinner shown until the first event.
	waiting func()
}

func (p *askPrinter) stopWaiting() {
	if p.waiting != nil {
		p.waiting()
	}
}

func (p *askPrinter) event(ev stream.Event) {
	msg := p.log.Apply(ev)
	if msg == nil {
		return
	}
	p.stopWaiting()
	if ai, ok := msg.(*model.AIMessage); ok {
		if p.md == nil {
			fmt.Fprint(p.w, ev.Text)
		}
		p.pending = ai
		return
	}

	p.flush()
	switch m := msg.(type) {
	case *model.ToolCallStartMessage:
		fmt.Fprintln(p.w, DimStyle.Render("⚙ "+m.ToolName))
	case *model.ToolResultMessage:
		p.toolResult(m)
	case *model.ErrorMessage:
		fmt.Fprintln(p.w, ErrorStyle.Render("✗ "+m.Text))
	}
}

// flush ends the assistant message in progress.
func (p *askPrinter) flush() {
	if p.pending == nil {
		return
	}
	if p.md != nil {
		fmt.Fprintln(p.w, p.md.Render("", p.pending.Text(), p.opts.Width))
	} else {
		fmt.Fprintln(p.w)
	}
	p.pending = nil
}

func (p *askPrinter) toolResult(m *model.ToolResultMessage) {
	if c := charts.New(charts.Detect(m.Result), p.opts); c != nil {
		fmt.Fprintln(p.w, c.View())
		return
	}
	if p.plain {
		var compact bytes.Buffer
		if err := json.Compact(&compact, m.Result); err != nil {
			compact.Reset()
			compact.Write(m.Result)
		}
		fmt.Fprintln(p.w, compact.String())
		return
	}
	out, hidden := p.code.Render(m.Result, p.maxLines)
	fmt.Fprintln(p.w, out)
	if hidden > 0 {
		fmt.Fprintln(p.w, DimStyle.Render(fmt.Sprintf("… %d more lines", hidden)))
	}
}
