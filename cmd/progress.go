package cmd

import "github.com/pterm/pterm"

// progresser wraps an optional pterm progress bar. In quiet mode, or when
// the terminal refuses the bar, every method is a no-op.
type progresser struct {
	pbar *pterm.ProgressbarPrinter
}

func newProgresser(title string, total int) *progresser {
	if global.quiet {
		return &progresser{}
	}
	pbar, err := pterm.DefaultProgressbar.WithTitle(title).WithTotal(total).Start()
	if err != nil {
		pbar = nil
	}
	return &progresser{
		pbar: pbar,
	}
}

func (p *progresser) Increment() {
	if p.pbar == nil {
		return
	}
	p.pbar.Increment()
}

func (p *progresser) Stop() {
	if p.pbar == nil {
		return
	}
	_, _ = p.pbar.Stop()
}
