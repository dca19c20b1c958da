package handlers

import (
	"net/http"
	"strconv"
	"time"

	"trip-ledger/internal/ledger"
	"trip-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// StatsCategoryItem represents a category with its spending statistics.
type StatsCategoryItem struct {
	ledger.CategoryTotal
	Color string
}

// StatsViewModel is the data passed to the statistics view template.
type StatsViewModel struct {
	Year           int
	Month          int
	MonthName      string
	Total          decimal.Decimal
	Categories     []StatsCategoryItem
	PrevYear       int
	PrevMonth      int
	NextYear       int
	NextMonth      int
	IsCurrentMonth bool
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// Statistics renders the user's spending per category for one month.
// Rejected expenses are left out, as on the statement.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	year, month := monthFromQuery(r, now)

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	cats, total, err := h.ledger.CategoryBreakdown(r.Context(), ledger.Filter{
		UserID: GetUserFromContext(r).ID,
		Period: &models.DateRange{Start: start, End: end},
	})
	if err != nil {
		h.httpError(w, r, err)
		return
	}

	items := make([]StatsCategoryItem, 0, len(cats))
	for _, c := range cats {
		items = append(items, StatsCategoryItem{CategoryTotal: c, Color: categoryColor(c.Category)})
	}

	prevDate := start.AddDate(0, -1, 0)
	nextDate := start.AddDate(0, 1, 0)

	h.render(w, r, "stats.html", StatsViewModel{
		Year:           year,
		Month:          month,
		MonthName:      monthNames[month-1],
		Total:          total,
		Categories:     items,
		PrevYear:       prevDate.Year(),
		PrevMonth:      int(prevDate.Month()),
		NextYear:       nextDate.Year(),
		NextMonth:      int(nextDate.Month()),
		IsCurrentMonth: year == now.Year() && month == int(now.Month()),
	})
}

// monthFromQuery reads year and month, defaulting to the current month.
func monthFromQuery(r *http.Request, now time.Time) (int, int) {
	year := now.Year()
	month := int(now.Month())

	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && y > 0 {
		year = y
	}
	if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && m >= 1 && m <= 12 {
		month = m
	}
	return year, month
}
