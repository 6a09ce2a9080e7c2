package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/hangxie/luna-browser/client"
	"github.com/hangxie/luna-browser/service"
	"github.com/hangxie/luna-browser/table"
)

// rowsPerPageStep is how much + and - change the page size
const rowsPerPageStep = 5

// rowSource loads a collection as table rows
type rowSource interface {
	List(ctx context.Context, collection client.Collection) ([]table.Row, error)
}

// TUIApp represents the terminal browser over Augur collections
type TUIApp struct {
	tviewApp    *tview.Application
	pages       *tview.Pages
	mainLayout  *tview.Flex
	headerView  *tview.TextView
	dataTable   *tview.Table
	statusLine  *tview.TextView
	source      rowSource
	collection  client.Collection
	rowsPerPage int
	view        *table.View
	unsubscribe []func()
	column      int // selected column, target of s and f
	message     string
	now         func() time.Time
}

// NewTUIApp creates a new TUIApp reading from source
func NewTUIApp(source rowSource, rowsPerPage int) *TUIApp {
	app := &TUIApp{
		tviewApp:    tview.NewApplication(),
		pages:       tview.NewPages(),
		source:      source,
		collection:  client.CollectionImagery,
		rowsPerPage: rowsPerPage,
		now:         time.Now,
	}
	app.createMainView()
	return app
}

func (app *TUIApp) createMainView() {
	app.headerView = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)
	app.headerView.SetBorder(true).
		SetTitleAlign(tview.AlignLeft)

	app.dataTable = tview.NewTable().
		SetBorders(false).
		SetSeparator(tview.Borders.Vertical).
		SetSelectable(true, false).
		SetFixed(1, 0)
	app.dataTable.SetBorder(true).
		SetTitleAlign(tview.AlignLeft)

	app.statusLine = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	app.mainLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(app.headerView, 4, 0, false).
		AddItem(app.dataTable, 0, 1, true).
		AddItem(app.statusLine, 2, 0, false)
	app.mainLayout.SetInputCapture(app.handleKey)

	app.updateHeader()
}

// attachView replaces the current view with one over rows and subscribes
// the widgets to it
func (app *TUIApp) attachView(rows []table.Row) {
	app.detachView()

	app.view = table.New(rows, table.Options{RowsPerPage: app.rowsPerPage})
	app.column = 0
	app.unsubscribe = []func(){
		app.view.SortState().Subscribe(app.renderColumnHeaders),
		app.view.Rows().Subscribe(app.renderRows),
		app.view.RowCount().Subscribe(func(table.RowCount) { app.renderStatus() }),
		app.view.Pages().Subscribe(func([]table.PageItem) { app.renderStatus() }),
	}
	app.dataTable.Select(1, 0).ScrollToBeginning()
	app.updateHeader()
}

func (app *TUIApp) detachView() {
	for _, unsubscribe := range app.unsubscribe {
		unsubscribe()
	}
	app.unsubscribe = nil
}

func (app *TUIApp) columns() []string {
	return app.collection.Columns()
}

func (app *TUIApp) selectedKey() string {
	columns := app.columns()
	if len(columns) == 0 {
		return ""
	}
	return columns[app.column]
}

// renderColumnHeaders draws row 0 with the sort indicator and the selected
// column highlighted
func (app *TUIApp) renderColumnHeaders(state table.SortState) {
	for i, key := range app.columns() {
		label := key
		if state.Key == key {
			switch state.Direction {
			case table.SortAscending:
				label += " ▲"
			case table.SortDescending:
				label += " ▼"
			}
		}

		cell := tview.NewTableCell(tview.Escape(label)).
			SetTextColor(tcell.ColorYellow).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		if i == app.column {
			cell.SetAttributes(tcell.AttrReverse)
		}
		app.dataTable.SetCell(0, i, cell)
	}
}

// renderRows redraws the data rows below the header
func (app *TUIApp) renderRows(rows []table.Row) {
	for app.dataTable.GetRowCount() > 1 {
		app.dataTable.RemoveRow(app.dataTable.GetRowCount() - 1)
	}

	now := app.now()
	columns := app.columns()
	for r, row := range rows {
		for c, key := range columns {
			value, _ := table.Lookup(row, key)
			cell := tview.NewTableCell(tview.Escape(service.CellText(key, value, now))).
				SetTextColor(tcell.ColorWhite).
				SetMaxWidth(40).
				SetExpansion(1)
			app.dataTable.SetCell(r+1, c, cell)
		}
	}
	if len(rows) == 0 {
		app.dataTable.SetCell(1, 0, tview.NewTableCell("No records").
			SetTextColor(tcell.ColorGray).
			SetSelectable(false))
	}
}

// renderStatus shows the row count summary, the page window and the last
// message
func (app *TUIApp) renderStatus() {
	if app.view == nil {
		app.statusLine.SetText(statusKeys)
		return
	}

	count := app.view.RowCount().Get()
	var status strings.Builder
	if count.Total == 0 {
		status.WriteString(" [yellow]No rows[-]")
	} else {
		fmt.Fprintf(&status, " [yellow]Rows:[-] %d-%d of %d", count.Start, count.End, count.Total)
	}
	fmt.Fprintf(&status, "  [yellow]Page:[-] %s", pageWindowText(app.view.Pages().Get(), app.view.PageNumber().Get()))
	if app.message != "" {
		status.WriteString("  " + app.message)
	}
	status.WriteString("\n" + statusKeys)
	app.statusLine.SetText(status.String())
}

const statusKeys = " [yellow]Keys:[-] ESC=quit, n/p=page, Tab=column, /=search, f=filter, s=sort, +/-=page size, r=reload, Enter=record, y=copy, 1-4=collection"

// pageWindowText renders a page window such as "1 … [4] 5 6 … 12"
func pageWindowText(items []table.PageItem, current int) string {
	parts := make([]string, len(items))
	for i, item := range items {
		if !item.IsEllipsis() && int(item) == current {
			parts[i] = "[::r]" + item.String() + "[::-]"
			continue
		}
		parts[i] = item.String()
	}
	return strings.Join(parts, " ")
}

// updateHeader shows the collection, search text and filters
func (app *TUIApp) updateHeader() {
	app.headerView.SetTitle(fmt.Sprintf(" %s ", app.collection.Title()))
	app.dataTable.SetTitle(" Rows (↑↓ to navigate) ")

	var header strings.Builder
	fmt.Fprintf(&header, "[yellow]Collection:[-] %s", app.collection.Title())
	if app.view == nil {
		app.headerView.SetText(header.String())
		return
	}

	if search := app.view.SearchText(); search != "" {
		fmt.Fprintf(&header, "  [yellow]Search:[-] %s", tview.Escape(search))
	}
	if filters := app.view.Filters(); len(filters) > 0 {
		keys := make([]string, 0, len(filters))
		for _, key := range app.columns() {
			if value, ok := filters[key]; ok {
				keys = append(keys, key+"="+tview.Escape(value))
			}
		}
		fmt.Fprintf(&header, "  [yellow]Filters:[-] %s", strings.Join(keys, ", "))
	}
	fmt.Fprintf(&header, "\n[yellow]Rows per page:[-] %d  [yellow]Column:[-] %s", app.view.RowsPerPage().Get(), app.selectedKey())
	app.headerView.SetText(header.String())
}

func (app *TUIApp) setMessage(message string) {
	app.message = message
	app.renderStatus()
}

func (app *TUIApp) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyEscape {
		app.detachView()
		app.tviewApp.Stop()
		return nil
	}
	if event.Key() == tcell.KeyRune {
		switch r := event.Rune(); r {
		case '1', '2', '3', '4':
			app.switchCollection(client.Collections[r-'1'])
			return nil
		case 'r':
			app.reload(app.view != nil)
			return nil
		}
	}
	if app.view == nil {
		return event
	}

	switch event.Key() {
	case tcell.KeyRight:
		app.view.SetPage(table.NextPage)
		return nil
	case tcell.KeyLeft:
		app.view.SetPage(table.PreviousPage)
		return nil
	case tcell.KeyTab:
		app.selectColumn(app.column + 1)
		return nil
	case tcell.KeyBacktab:
		app.selectColumn(app.column - 1)
		return nil
	case tcell.KeyEnter:
		row, err := app.selectedRow()
		if err != nil {
			app.setMessage(fmt.Sprintf("[red]%v[-]", err))
			return nil
		}
		newRecordViewer(app, row).show()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'n':
			app.view.SetPage(table.NextPage)
		case 'p':
			app.view.SetPage(table.PreviousPage)
		case '/':
			app.showPrompt("Search: ", app.view.SearchText(), func(text string) {
				app.view.Search(text)
				app.updateHeader()
			})
		case 'f':
			key := app.selectedKey()
			app.showPrompt(fmt.Sprintf("Filter %s: ", key), app.view.Filters()[key], func(text string) {
				app.view.Filter(text, key)
				app.updateHeader()
			})
		case 's':
			app.view.Sort(app.selectedKey())
		case '+':
			app.changeRowsPerPage(rowsPerPageStep)
		case '-':
			app.changeRowsPerPage(-rowsPerPageStep)
		case 'y':
			app.copySelectedRow()
		default:
			return event
		}
		return nil
	}
	return event
}

func (app *TUIApp) selectColumn(column int) {
	count := len(app.columns())
	if count == 0 {
		return
	}
	app.column = (column%count + count) % count
	app.renderColumnHeaders(app.view.SortState().Get())
	app.updateHeader()
}

func (app *TUIApp) changeRowsPerPage(delta int) {
	app.view.SetRowsPerPage(max(1, app.view.RowsPerPage().Get()+delta))
	app.updateHeader()
}

// showPrompt asks for one line of text above the status line. Enter calls
// done, ESC dismisses the prompt.
func (app *TUIApp) showPrompt(label, initial string, done func(text string)) {
	input := tview.NewInputField().
		SetLabel(label).
		SetText(initial).
		SetFieldWidth(0)
	input.SetBorder(true)
	input.SetDoneFunc(func(key tcell.Key) {
		app.pages.RemovePage("prompt")
		if key == tcell.KeyEnter {
			done(input.GetText())
		}
	})

	overlay := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(input, 3, 0, true).
		AddItem(nil, 2, 0, false)
	app.pages.AddPage("prompt", overlay, true, true)
}

// switchCollection loads another collection into a fresh view
func (app *TUIApp) switchCollection(collection client.Collection) {
	if collection == app.collection {
		return
	}
	app.collection = collection
	app.detachView()
	app.view = nil
	app.dataTable.Clear()
	app.updateHeader()
	app.reload(false)
}

// reload fetches the current collection in the background. A refresh keeps
// search, filters and sort of the current view.
func (app *TUIApp) reload(refresh bool) {
	collection := app.collection
	app.setMessage(fmt.Sprintf("[yellow]Loading %s...[-]", collection.Title()))

	go func() {
		rows, err := app.source.List(context.Background(), collection)
		app.tviewApp.QueueUpdateDraw(func() {
			app.applyRows(collection, rows, err, refresh)
		})
	}()
}

// applyRows installs freshly loaded rows, ignoring results for a collection
// the user has already left
func (app *TUIApp) applyRows(collection client.Collection, rows []table.Row, err error, refresh bool) {
	if collection != app.collection {
		return
	}
	if err != nil {
		app.setMessage(fmt.Sprintf("[red]Error loading %s: %v[-]", collection.Title(), err))
		app.showError(fmt.Sprintf("Error loading %s:\n%v", collection.Title(), err))
		return
	}

	if refresh && app.view != nil {
		app.view.SetRows(rows)
	} else {
		app.attachView(rows)
	}
	app.setMessage(fmt.Sprintf("[green]Loaded %d rows[-]", len(rows)))
}

func (app *TUIApp) showError(text string) {
	errorModal := tview.NewModal().
		SetText(text + "\n\nPress ESC to go back").
		SetTextColor(tcell.ColorRed).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			app.pages.RemovePage("error")
		})
	app.pages.AddPage("error", errorModal, true, true)
}

// selectedRow returns the row under the cursor on the current page
func (app *TUIApp) selectedRow() (table.Row, error) {
	if app.view == nil {
		return nil, ErrNoSelection
	}
	selected, _ := app.dataTable.GetSelection()
	rows := app.view.Rows().Get()
	if selected < 1 || selected > len(rows) {
		return nil, ErrNoSelection
	}
	return rows[selected-1], nil
}

func (app *TUIApp) copySelectedRow() {
	row, err := app.selectedRow()
	var data []byte
	if err == nil {
		data, err = json.MarshalIndent(row, "", "  ")
	}
	if err == nil {
		err = clipboard.WriteAll(string(data))
	}
	if err != nil {
		app.setMessage(fmt.Sprintf("[red]Failed to copy: %v[-]", err))
		return
	}
	app.setMessage("[green]Copied row to clipboard![-]")
}
