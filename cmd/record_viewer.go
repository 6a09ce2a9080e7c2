package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/hangxie/luna-browser/model"
	"github.com/hangxie/luna-browser/table"
)

const (
	recordFormatJSON     = "json"
	recordFormatGeometry = "geometry"
)

// geometryKeys are where a record keeps its shape: areas of interest at the
// top level, finders under their location
var geometryKeys = []string{"geometry", "location.geometry"}

// recordViewer shows one row as JSON, or its normalized geometry as GeoJSON
type recordViewer struct {
	app       *TUIApp
	row       table.Row
	format    string
	isPretty  bool
	textView  *tview.TextView
	titleBar  *tview.TextView
	statusBar *tview.TextView
}

func newRecordViewer(app *TUIApp, row table.Row) *recordViewer {
	return &recordViewer{
		app:       app,
		row:       row,
		format:    recordFormatJSON,
		isPretty:  true,
		textView:  tview.NewTextView().SetScrollable(true),
		titleBar:  tview.NewTextView().SetDynamicColors(true),
		statusBar: tview.NewTextView().SetDynamicColors(true),
	}
}

func (rv *recordViewer) show() {
	rv.textView.SetBorder(true)
	rv.updateDisplay()

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(rv.titleBar, 1, 0, false).
		AddItem(rv.textView, 0, 1, true).
		AddItem(rv.statusBar, 1, 0, false)

	flex.SetBorder(true)
	flex.SetInputCapture(rv.handleInput)

	rv.app.pages.AddPage("record", flex, true, true)
}

func (rv *recordViewer) handleInput(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyEscape {
		rv.app.pages.RemovePage("record")
		return nil
	}
	if event.Key() == tcell.KeyRune {
		switch event.Rune() {
		case 'j', 'J':
			rv.switchToFormat(recordFormatJSON)
			return nil
		case 'g', 'G':
			rv.switchToFormat(recordFormatGeometry)
			return nil
		case 'p', 'P':
			rv.isPretty = !rv.isPretty
			rv.statusBar.SetText("")
			rv.updateDisplay()
			return nil
		case 'y', 'Y':
			rv.copyToClipboard()
			return nil
		}
	}
	return event
}

func (rv *recordViewer) switchToFormat(format string) {
	rv.format = format
	rv.statusBar.SetText("")
	rv.updateDisplay()
}

func (rv *recordViewer) copyToClipboard() {
	if err := clipboard.WriteAll(rv.textView.GetText(false)); err != nil {
		rv.statusBar.SetText(fmt.Sprintf("[red]Failed to copy: %v[-]", err))
		return
	}
	rv.statusBar.SetText(fmt.Sprintf("[green]Copied %s to clipboard![-]", rv.format))
}

func (rv *recordViewer) updateDisplay() {
	mode := "Pretty"
	if !rv.isPretty {
		mode = "Compact"
	}
	rv.titleBar.SetText(fmt.Sprintf("[yellow]Record [%s - %s] | ESC=close, j=json, g=geometry, p=pretty/compact, y=copy[-]", rv.format, mode))

	var value any = rv.row
	if rv.format == recordFormatGeometry {
		geometry, err := recordGeometry(rv.row)
		switch {
		case err != nil:
			rv.textView.SetText(fmt.Sprintf("Invalid geometry: %v", err))
			return
		case geometry == nil:
			rv.textView.SetText("No geometry in this record")
			return
		}
		value = model.NormalizeGeometry(geometry, 0)
	}

	var data []byte
	var err error
	if rv.isPretty {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		rv.textView.SetText(fmt.Sprintf("Error encoding record: %v", err))
		return
	}
	rv.textView.SetText(string(data)).ScrollToBeginning()
}

// recordGeometry decodes the first geometry found under geometryKeys
func recordGeometry(row table.Row) (model.Geometry, error) {
	for _, key := range geometryKeys {
		raw, ok := table.Lookup(row, key)
		if !ok || raw == nil {
			continue
		}
		return model.DecodeGeometry(raw)
	}
	return nil, nil
}
