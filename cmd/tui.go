package cmd

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/hangxie/luna-browser/client"
	"github.com/hangxie/luna-browser/logging"
	"github.com/hangxie/luna-browser/table"
)

// TUICmd is a kong command for browsing Augur collections in the terminal
type TUICmd struct {
	Collection  string `arg:"" optional:"" default:"imagery" enum:"imagery,archive,feasibility,providers" help:"Collection to open first (imagery, archive, feasibility or providers)."`
	RowsPerPage int    `name:"rows-per-page" help:"Rows per page (default 10)."`
	AugurOption
}

// loadResult is the outcome of the initial collection fetch
type loadResult struct {
	rows []table.Row
	err  error
}

// load fetches collection and sends the result to resultChan unless ctx is
// cancelled first
func load(ctx context.Context, source rowSource, collection client.Collection, resultChan chan<- loadResult) {
	rows, err := source.List(ctx, collection)
	select {
	case <-ctx.Done():
		return
	case resultChan <- loadResult{rows: rows, err: err}:
	}
}

// Run does actual browse job
func (t TUICmd) Run() error {
	cfg, err := t.resolve("", t.RowsPerPage)
	if err != nil {
		return err
	}
	collection, err := client.ParseCollection(t.Collection)
	if err != nil {
		return err
	}

	// Logs would draw over the screen
	augur := newAugurClient(cfg, logging.Discard())
	app := NewTUIApp(augur, cfg.RowsPerPage)
	app.collection = collection

	// Create a loading modal with cancellation instructions
	modal := tview.NewModal().
		SetText(fmt.Sprintf("Loading %s...\n%s\n\nPlease wait...\n\nPress ESC or Ctrl+C to cancel", collection.Title(), cfg.AugurHost)).
		SetTextColor(tcell.ColorYellow)

	// Context for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Track if loading was cancelled
	cancelled := false

	// Add input capture to handle cancellation
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyCtrlC {
			cancelled = true
			cancel()
			app.tviewApp.Stop()
			return nil
		}
		return event
	})

	app.pages.AddPage("loading", modal, true, true)
	app.tviewApp.SetRoot(app.pages, true)

	resultChan := make(chan loadResult, 1)
	go load(ctx, augur, collection, resultChan)

	go func() {
		select {
		case <-ctx.Done():
			// User cancelled
			return
		case res := <-resultChan:
			app.tviewApp.QueueUpdateDraw(func() {
				if res.err != nil {
					// Show error modal
					errorModal := tview.NewModal().
						SetText(fmt.Sprintf("Error loading %s:\n%v\n\nPress ESC to exit", collection.Title(), res.err)).
						SetTextColor(tcell.ColorRed).
						AddButtons([]string{"Exit"}).
						SetDoneFunc(func(buttonIndex int, buttonLabel string) {
							app.tviewApp.Stop()
						})
					app.pages.AddPage("error", errorModal, true, true)
					app.pages.SwitchToPage("error")
					return
				}

				app.attachView(res.rows)
				app.setMessage(fmt.Sprintf("[green]Loaded %d rows[-]", len(res.rows)))

				// Remove loading modal and show main view
				app.pages.RemovePage("loading")
				app.pages.AddPage("main", app.mainLayout, true, true)
				app.pages.SwitchToPage("main")
			})
		}
	}()

	// Run the app
	err = app.tviewApp.Run()
	app.detachView()

	// If cancelled, return nil (successful cancellation)
	if cancelled {
		return nil
	}

	return err
}
