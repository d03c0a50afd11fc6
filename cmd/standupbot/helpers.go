package main

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"standupbot/internal/stream"
)

type spinner struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
	once sync.Once
}

// newSpinner animates on stderr until Stop is called.
func newSpinner(description string) *spinner {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	_ = bar.RenderBlank()

	s := &spinner{bar: bar, done: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()
	return s
}

func (s *spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		_ = s.bar.Finish()
	})
}

// liveWriter receives the framed stream, drops the metadata frame and echoes
// the generated text. onFirst runs before the first generated byte.
type liveWriter struct {
	out     io.Writer
	echo    bool
	onFirst func()

	header   strings.Builder
	metaDone bool
	started  bool
}

func newLiveWriter(out io.Writer, echo bool, onFirst func()) *liveWriter {
	return &liveWriter{out: out, echo: echo, onFirst: onFirst}
}

func (w *liveWriter) Write(p []byte) (int, error) {
	text := string(p)
	if !w.metaDone {
		w.header.WriteString(text)
		buf := w.header.String()
		end := stream.MarkerMetaClose + "\n"
		idx := strings.Index(buf, end)
		if idx < 0 {
			return len(p), nil
		}
		w.metaDone = true
		text = buf[idx+len(end):]
		w.header.Reset()
	}
	if text == "" {
		return len(p), nil
	}
	if !w.started {
		w.started = true
		if w.onFirst != nil {
			w.onFirst()
		}
	}
	if w.echo {
		if _, err := io.WriteString(w.out, text); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
