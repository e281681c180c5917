package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"tof-pid-lab/internal/domain"
)

func TestTablesKeepAppendOrder(t *testing.T) {
	table := NewNsigmaFullTable()
	table.Reserve(4)

	for i := 0; i < 4; i++ {
		table.Append(domain.NsigmaFullRecord{TrackIndex: i, Species: domain.SpeciesPion})
	}

	rows := table.Rows()
	assert.Len(t, rows, 4)
	for i, r := range rows {
		assert.Equal(t, i, r.TrackIndex)
	}
}

func TestRowsReturnsCopy(t *testing.T) {
	table := NewEventTimeTable()
	table.Append(domain.EventTimeRecord{TrackIndex: 0, Value: 10})

	rows := table.Rows()
	rows[0].Value = -1

	assert.Equal(t, 10.0, table.Rows()[0].Value, "mutating the returned slice must not touch the table")
}

func TestConcurrentAppend(t *testing.T) {
	table := NewBetaTable()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				table.Append(domain.BetaRecord{TrackIndex: i*100 + j})
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, table.Rows(), 800)
}
