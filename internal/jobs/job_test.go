package jobs

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statementlens/internal/models"
)

func TestJob_HappyPath(t *testing.T) {
	now := time.Date(2024, 2, 1, 9, 30, 0, 0, time.FixedZone("CST", -6*3600))
	j := New("abc", "/tmp/abc/input.pdf", now)

	assert.Equal(t, StatusUploaded, j.Status)
	assert.Equal(t, time.UTC, j.CreatedAt.Location())

	require.NoError(t, j.MarkDetected("BBVA", "bbva_debito_v1", "DEBITO"))
	assert.Equal(t, StatusDetected, j.Status)

	require.NoError(t, j.MarkParsed(Summary{
		MovementCount: 3,
		Currency:      "MXN",
		Account:       "0123456789",
		DateFrom:      "2024-01-02",
		DateTo:        "2024-01-30",
	}, "/tmp/abc/preview.json"))
	assert.Equal(t, StatusParsed, j.Status)
	assert.Equal(t, 3, j.MovementCount)
	assert.Equal(t, "/tmp/abc/preview.json", j.PreviewPath)

	require.NoError(t, j.MarkExported("/tmp/abc/output.xlsx"))
	assert.Equal(t, StatusExported, j.Status)
	assert.True(t, j.Status.Terminal())
}

func TestJob_InvalidTransitions(t *testing.T) {
	j := New("abc", "in.pdf", time.Now())

	err := j.MarkExported("out.xlsx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	var ite *InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, StatusUploaded, ite.From)
	assert.Equal(t, StatusExported, ite.To)

	require.NoError(t, j.MarkDetected("HSBC", "hsbc_current_v1", "CURRENT"))
	assert.ErrorIs(t, j.MarkDetected("HSBC", "hsbc_current_v1", "CURRENT"), ErrInvalidTransition)
	assert.Equal(t, StatusDetected, j.Status)
}

func TestJob_MarkParsedRejectsEmpty(t *testing.T) {
	j := New("abc", "in.pdf", time.Now())
	require.NoError(t, j.MarkDetected("BBVA", "bbva_tc_v1", "TC"))

	err := j.MarkParsed(Summary{}, "preview.json")
	var empty *EmptyResultError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "no movements found", err.Error())
	assert.Equal(t, StatusDetected, j.Status)
}

func TestJob_Fail(t *testing.T) {
	j := New("abc", "in.pdf", time.Now())
	require.NoError(t, j.MarkDetected("BBVA", "bbva_tc_v1", "TC"))
	require.NoError(t, j.Fail("boom"))

	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, "boom", j.ErrorMessage)
	assert.Equal(t, "bbva_tc_v1", j.FormatID)

	assert.ErrorIs(t, j.Fail("again"), ErrTerminal)
	assert.ErrorIs(t, j.MarkParsed(Summary{MovementCount: 1}, ""), ErrTerminal)
	assert.Equal(t, "boom", j.ErrorMessage)
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusUploaded, StatusDetected, StatusParsed, StatusExported, StatusFailed} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("queued").Valid())
	assert.False(t, StatusParsed.Terminal())
}

func TestSummarize(t *testing.T) {
	table := models.NewTable("fecha_operacion", "fecha_liquidacion", "descripcion", "cuenta", "moneda")
	table.Append(models.Row{"fecha_operacion": "2024-01-05", "fecha_liquidacion": "2024-01-06", "cuenta": "0123", "moneda": "MXN"})
	table.Append(models.Row{"fecha_operacion": "2023-12-31", "fecha_liquidacion": "2024-01-02", "cuenta": "0123", "moneda": "MXN"})
	table.Append(models.Row{"fecha_operacion": "2024-01-20", "fecha_liquidacion": "not a date"})

	s := Summarize(table)
	assert.Equal(t, 3, s.MovementCount)
	assert.Equal(t, "MXN", s.Currency)
	assert.Equal(t, "0123", s.Account)
	// fecha_liquidacion wins over fecha_operacion
	assert.Equal(t, "2024-01-02", s.DateFrom)
	assert.Equal(t, "2024-01-06", s.DateTo)
}

func TestSummarize_NoDates(t *testing.T) {
	table := models.NewTable("description")
	table.Append(models.Row{"description": "x"})

	s := Summarize(table)
	assert.Equal(t, 1, s.MovementCount)
	assert.Empty(t, s.DateFrom)
	assert.Empty(t, s.DateTo)
	assert.Empty(t, s.Currency)
}

func TestSummarize_PeriodFallback(t *testing.T) {
	table := models.NewTable("date", "description", "period_start", "period_end")
	table.Append(models.Row{"date": "15 Jnu 24", "description": "x", "period_start": "2024-01-01", "period_end": "2024-01-31"})
	table.Append(models.Row{"date": nil, "description": "y", "period_start": "2024-01-01", "period_end": "2024-01-31"})

	s := Summarize(table)
	assert.Equal(t, "2024-01-01", s.DateFrom)
	assert.Equal(t, "2024-01-31", s.DateTo)

	// a parseable movement date wins over the period
	table.Rows[1]["date"] = "2024-01-20"
	s = Summarize(table)
	assert.Equal(t, "2024-01-20", s.DateFrom)
	assert.Equal(t, "2024-01-20", s.DateTo)
}

func TestPreviewRows(t *testing.T) {
	table := models.NewTable("date", "amount", "ratio", "when")
	for i := 0; i < 5; i++ {
		table.Append(models.Row{
			"date":   "2024-01-0" + string(rune('1'+i)),
			"amount": decimal.RequireFromString("10.25"),
			"ratio":  math.NaN(),
			"when":   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		})
	}

	rows := PreviewRows(table, 2)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-01", rows[0]["date"])
	assert.Equal(t, 10.25, rows[0]["amount"])
	assert.Nil(t, rows[0]["ratio"])
	assert.Equal(t, "2024-01-01", rows[0]["when"])

	assert.Len(t, PreviewRows(table, 50), 5)
	assert.Empty(t, PreviewRows(models.NewTable("date"), 10))
}

func TestKeyedMutex(t *testing.T) {
	var k keyedMutex
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("same")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, k.size())

	a := k.Lock("a")
	b := k.Lock("b")
	assert.Equal(t, 2, k.size())
	a()
	b()
	assert.Equal(t, 0, k.size())
}

func (k *keyedMutex) refs(id string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.locks[id]; ok {
		return e.refs
	}
	return 0
}

// Request ids handed out by fiber alias a buffer that is reused after the
// handler returns.
func TestKeyedMutex_KeyOutlivesCallerBuffer(t *testing.T) {
	var k keyedMutex
	buf := []byte("job-AAAA")
	id := unsafe.String(&buf[0], len(buf))

	unlockA := k.Lock(id)

	bAcquired := make(chan func())
	go func() { bAcquired <- k.Lock(id) }()
	require.Eventually(t, func() bool { return k.refs("job-AAAA") == 2 }, time.Second, time.Millisecond)

	unlockA()
	unlockB := <-bAcquired
	copy(buf, "job-ZZZZ")

	cAcquired := make(chan func(), 1)
	go func() { cAcquired <- k.Lock("job-AAAA") }()
	select {
	case unlock := <-cAcquired:
		unlock()
		t.Fatal("second holder acquired job-AAAA while it was still locked")
	case <-time.After(50 * time.Millisecond):
	}

	unlockB()
	unlockC := <-cAcquired
	unlockC()
	assert.Equal(t, 0, k.size())
}
