// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

// startSpinner animates label on the current line until the returned stop
// is called. stop clears the line and is safe to call more than once.
func startSpinner(w io.Writer, cfg styles.SpinnerConfig, label string) (stop func()) {
	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.Duration())
		defer ticker.Stop()
		for i := 0; ; i++ {
			frame := cfg.Frames[i%len(cfg.Frames)]
			fmt.Fprintf(w, "\r%s %s", DimStyle.Render(label), frame)
			select {
			case <-quit:
				fmt.Fprint(w, "\r"+ansi.EraseEntireLine)
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(quit)
			<-done
		})
	}
}
