package transform

import (
	"fmt"
	"time"
)

// JournalPrefix is shared by standard and reclass journal numbers.
const JournalPrefix = "KZO-JV"

// JournalNumber formats a journal document number. Padding holds four
// digits and grows unpadded past 9999.
func JournalNumber(seq int64) string {
	return fmt.Sprintf("%s%04d", JournalPrefix, seq)
}

// ExpenseNumber formats an expense reference, carrying the country and
// the payment month so numbers stay unique across markets.
func ExpenseNumber(country string, date time.Time, seq int64) string {
	return fmt.Sprintf("KZO%s%sE%04d", country, mmYY(date), seq)
}

// TransferNumber formats a transfer reference.
func TransferNumber(country string, date time.Time, seq int64) string {
	return fmt.Sprintf("KZO%s%sT%04d", country, mmYY(date), seq)
}

func mmYY(date time.Time) string {
	if date.IsZero() {
		return "0000"
	}
	return date.Format("0106")
}

// ExpensePrefix is the LIKE prefix for ledger max-number scans.
func ExpensePrefix(country string) string { return "KZO" + country }

// minter allocates document numbers for one category. A source row
// present in the preserved map keeps its prior number instead of
// consuming a fresh sequence value, so retried rows keep a stable
// identity in the ledger.
type minter struct {
	last      int64
	preserved map[int64]string
}

func newMinter(last int64, preserved map[int64]string) *minter {
	return &minter{last: last, preserved: preserved}
}

func (m *minter) mint(sourceNo int64, format func(seq int64) string) string {
	if id, ok := m.preserved[sourceNo]; ok {
		return id
	}
	m.last++
	return format(m.last)
}

// mintGroup numbers a reclass date-group. The preserved map is keyed by
// source row, not by date, so the prior number is reused only when every
// row in the group agrees on the same one; any disagreement or gap
// mints fresh.
func (m *minter) mintGroup(sourceNos []int64, format func(seq int64) string) string {
	if len(sourceNos) > 0 {
		agreed := ""
		ok := true
		for _, no := range sourceNos {
			id, found := m.preserved[no]
			if !found || (agreed != "" && id != agreed) {
				ok = false
				break
			}
			agreed = id
		}
		if ok && agreed != "" {
			return agreed
		}
	}
	m.last++
	return format(m.last)
}
