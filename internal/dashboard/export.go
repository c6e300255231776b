package dashboard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/joshua-takyi/slotbook/internal/models"
)

var ErrNothingToExport = errors.New("there are no attendees to export")

var ExportHeader = []string{
	"Name", "Email", "Phone", "Ticket Type", "Amount", "Status",
	"Check-in Status", "Check-in Time", "Booking Date",
}

const exportTimeLayout = "2006-01-02 15:04"

// Export writes records as CSV with every field quoted and returns the number of data rows.
func Export(w io.Writer, records []models.Booking, tiers []models.Tier) (int, error) {
	if len(records) == 0 {
		return 0, ErrNothingToExport
	}
	bw := bufio.NewWriter(w)
	if err := writeRow(bw, ExportHeader); err != nil {
		return 0, err
	}
	for i := range records {
		if err := writeRow(bw, exportRow(&records[i], tiers)); err != nil {
			return i, err
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}
	return len(records), nil
}

func exportRow(b *models.Booking, tiers []models.Tier) []string {
	checkIn, checkInTime := "Not Checked In", ""
	if b.CheckedIn {
		checkIn = "Checked In"
	}
	if b.CheckInTime != nil && !b.CheckInTime.IsZero() {
		checkInTime = b.CheckInTime.Format(exportTimeLayout)
	}
	created := ""
	if !b.CreatedAt.IsZero() {
		created = b.CreatedAt.Format(exportTimeLayout)
	}
	return []string{
		b.BuyerName,
		b.BuyerEmail,
		b.BuyerPhone,
		b.TicketType,
		strconv.FormatFloat(Revenue(b, tiers), 'f', 2, 64),
		string(b.PaymentStatus),
		checkIn,
		checkInTime,
		created,
	}
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(f, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportFilename builds {title}_{scope}_attendees.csv with path-unsafe characters replaced.
func ExportFilename(title, scope string) string {
	if scope == "" {
		scope = "all"
	}
	clean := func(s string) string {
		return strings.Trim(unsafeFilename.ReplaceAllString(strings.TrimSpace(s), "-"), "-")
	}
	return fmt.Sprintf("%s_%s_attendees.csv", clean(title), clean(scope))
}
