package facts

import "journey-insights/internal/model"

// selectExemplarQuotes picks up to eight display quotes in three passes:
// first one quote per distinct session, then quotes introducing an unseen
// theme, then anything left in original order. Duplicate text is skipped in
// every pass, so the selection maximizes session and theme diversity before
// falling back to raw order.
func selectExemplarQuotes(sessions []*model.SessionFacts) []model.ExemplarQuote {
	type candidate struct {
		sessionID string
		quote     model.Quote
	}
	var pool []candidate
	for _, s := range sessions {
		for _, q := range s.Quotes {
			if q.Text == "" {
				continue
			}
			pool = append(pool, candidate{sessionID: s.SessionID, quote: q})
		}
	}

	var selected []model.ExemplarQuote
	seenText := map[string]bool{}
	seenSession := map[string]bool{}
	seenTheme := map[string]bool{}
	taken := make([]bool, len(pool))

	take := func(i int) {
		c := pool[i]
		selected = append(selected, model.ExemplarQuote{
			SessionID: c.sessionID,
			Theme:     c.quote.Theme,
			Text:      c.quote.Text,
		})
		seenText[c.quote.Text] = true
		seenSession[c.sessionID] = true
		if c.quote.Theme != "" {
			seenTheme[c.quote.Theme] = true
		}
		taken[i] = true
	}

	// Pass 1: one quote per distinct session.
	for i, c := range pool {
		if len(selected) == model.MaxExemplars {
			return selected
		}
		if seenSession[c.sessionID] || seenText[c.quote.Text] {
			continue
		}
		take(i)
	}

	// Pass 2: quotes whose theme has not appeared yet.
	for i, c := range pool {
		if len(selected) == model.MaxExemplars {
			return selected
		}
		if taken[i] || seenText[c.quote.Text] {
			continue
		}
		if c.quote.Theme == "" || seenTheme[c.quote.Theme] {
			continue
		}
		take(i)
	}

	// Pass 3: whatever remains, original order.
	for i, c := range pool {
		if len(selected) == model.MaxExemplars {
			return selected
		}
		if taken[i] || seenText[c.quote.Text] {
			continue
		}
		take(i)
	}

	return selected
}
