package dashboard

import "github.com/joshua-takyi/slotbook/internal/models"

type TierStats struct {
	Name      string  `json:"name"`
	Capacity  int     `json:"capacity"`
	Sold      int     `json:"sold"`
	Available int     `json:"available"`
	Revenue   float64 `json:"revenue,omitempty"`
}

type Stats struct {
	Total             int         `json:"total"`
	CheckedIn         int         `json:"checked_in"`
	Pending           int         `json:"pending"`
	CheckInPercentage float64     `json:"check_in_percentage"`
	TotalRevenue      float64     `json:"total_revenue,omitempty"`
	Tiers             []TierStats `json:"tiers,omitempty"`
}

// Revenue prefers the amount recorded on the booking. Without one it prices each tier line,
// using the line's own price or else the catalog tier price.
func Revenue(b *models.Booking, tiers []models.Tier) float64 {
	if b.Amount != nil {
		return *b.Amount
	}
	total := 0.0
	for _, line := range b.Tiers {
		price := line.Price
		if price == 0 {
			price = tierPrice(tiers, line.Name)
		}
		total += price * float64(line.Quantity)
	}
	return total
}

// revenueByTier splits a booking's revenue across its tier lines in proportion to their list
// value, falling back to quantity when no line has a price. The shares add up to Revenue.
func revenueByTier(b *models.Booking, tiers []models.Tier) map[string]float64 {
	total := Revenue(b, tiers)
	if len(b.Tiers) == 0 {
		if b.TicketType == "" {
			return nil
		}
		return map[string]float64{b.TicketType: total}
	}

	weights := make([]float64, len(b.Tiers))
	listed, units := 0.0, 0.0
	for i, line := range b.Tiers {
		price := line.Price
		if price == 0 {
			price = tierPrice(tiers, line.Name)
		}
		weights[i] = price * float64(line.Quantity)
		listed += weights[i]
		units += float64(line.Quantity)
	}

	out := make(map[string]float64, len(b.Tiers))
	for i, line := range b.Tiers {
		switch {
		case listed > 0:
			out[line.Name] += total * weights[i] / listed
		case units > 0:
			out[line.Name] += total * float64(line.Quantity) / units
		}
	}
	return out
}

func tierPrice(tiers []models.Tier, name string) float64 {
	for _, t := range tiers {
		if t.Name == name {
			return t.Price
		}
	}
	return 0
}

// ComputeStats counts every record given. Revenue and tier sales only include records
// that still hold capacity, so refunded and cancelled bookings drop out of the totals.
func ComputeStats(records []models.Booking, tiers []models.Tier) Stats {
	st := Stats{Total: len(records)}
	sold := make(map[string]int, len(tiers))
	earned := make(map[string]float64, len(tiers))

	for i := range records {
		b := &records[i]
		if b.CheckedIn {
			st.CheckedIn++
		}
		if !b.PaymentStatus.HoldsCapacity() {
			continue
		}
		st.TotalRevenue += Revenue(b, tiers)
		for name, share := range revenueByTier(b, tiers) {
			earned[name] += share
		}

		if len(b.Tiers) > 0 {
			for _, line := range b.Tiers {
				sold[line.Name] += line.Quantity
			}
		} else if b.TicketType != "" {
			sold[b.TicketType] += b.Quantity
		}
	}
	st.Pending = st.Total - st.CheckedIn
	if st.Total > 0 {
		st.CheckInPercentage = float64(st.CheckedIn) / float64(st.Total) * 100
	}

	for _, t := range tiers {
		ts := TierStats{
			Name:     t.Name,
			Capacity: t.Capacity,
			Sold:     sold[t.Name],
			Revenue:  earned[t.Name],
		}
		ts.Available = ts.Capacity - ts.Sold
		if ts.Available < 0 {
			ts.Available = 0
		}
		st.Tiers = append(st.Tiers, ts)
	}
	return st
}

// WithoutFinancials strips revenue fields for viewers who may not see money.
func (s Stats) WithoutFinancials() Stats {
	s.TotalRevenue = 0
	if s.Tiers != nil {
		tiers := make([]TierStats, len(s.Tiers))
		copy(tiers, s.Tiers)
		for i := range tiers {
			tiers[i].Revenue = 0
		}
		s.Tiers = tiers
	}
	return s
}
