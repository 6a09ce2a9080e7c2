package table

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Subscribe_ReceivesCurrentValue(t *testing.T) {
	v := New(numberedRows(25), Options{RowsPerPage: 10})

	var got []int
	unsubscribe := v.PageCount().Subscribe(func(n int) { got = append(got, n) })
	defer unsubscribe()

	require.Equal(t, []int{3}, got)
}

func Test_Subscribe_NotifiedOnlyOnChange(t *testing.T) {
	v := New(numberedRows(25), Options{RowsPerPage: 10})

	var pages []int
	unsubscribe := v.PageNumber().Subscribe(func(n int) { pages = append(pages, n) })
	defer unsubscribe()

	v.SetPage(NextPage)
	v.SetPage(NextPage)
	v.SetPage(NextPage) // already on the last page
	v.Sort("name")      // page unaffected

	require.Equal(t, []int{1, 2, 3}, pages)
}

func Test_Subscribe_SeesConsistentState(t *testing.T) {
	v := New(numberedRows(25), Options{RowsPerPage: 10})

	var summaries []RowCount
	unsubscribe := v.Rows().Subscribe(func(rows []Row) {
		// every derived value is already up to date when any subscriber runs
		summaries = append(summaries, v.RowCount().Get())
		require.Len(t, rows, v.RowCount().Get().End-v.RowCount().Get().Start+1)
	})
	defer unsubscribe()

	v.SetPage(GoToPage(3))
	require.Equal(t, []RowCount{
		{Start: 1, End: 10, Total: 25},
		{Start: 21, End: 25, Total: 25},
	}, summaries)
}

func Test_Unsubscribe(t *testing.T) {
	v := New(numberedRows(25), Options{RowsPerPage: 10})

	calls := 0
	unsubscribe := v.PageNumber().Subscribe(func(int) { calls++ })
	require.Equal(t, 1, calls)

	unsubscribe()
	v.SetPage(NextPage)
	require.Equal(t, 1, calls)

	// unsubscribing twice is harmless
	unsubscribe()
}

func Test_Subscribe_UnsubscribeDuringNotify(t *testing.T) {
	v := New(numberedRows(25), Options{RowsPerPage: 10})

	var first, second int
	var unsubscribeFirst func()
	unsubscribeFirst = v.PageNumber().Subscribe(func(int) {
		first++
		if first == 2 {
			unsubscribeFirst()
		}
	})
	unsubscribeSecond := v.PageNumber().Subscribe(func(int) { second++ })
	defer unsubscribeSecond()

	v.SetPage(NextPage)
	v.SetPage(NextPage)

	require.Equal(t, 2, first)
	require.Equal(t, 3, second)
}

func Test_Subscribe_NilFunc(t *testing.T) {
	v := New(nil, Options{})
	unsubscribe := v.Pages().Subscribe(nil)
	require.NotNil(t, unsubscribe)
	unsubscribe()
}

func Test_Subscribe_SortState(t *testing.T) {
	v := New(numberedRows(3), Options{})

	var states []SortState
	unsubscribe := v.SortState().Subscribe(func(s SortState) { states = append(states, s) })
	defer unsubscribe()

	v.Sort("id")
	v.Sort("id")
	v.Sort("id")

	require.Equal(t, []SortState{
		{},
		{Key: "id", Direction: SortAscending},
		{Key: "id", Direction: SortDescending},
		{},
	}, states)
}
