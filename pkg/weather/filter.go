package weather

// FilterDay returns a copy of d holding only the named elements, using the
// service's element names ("tempmax", "preciptype"). The date is always kept.
// Hourly records and events survive only when "hours" or "events" is named.
func FilterDay(d Day, elements ...string) Day {
	keep := elementSet(elements)
	d = d.clone()
	keepFields(&d, dayFields, keep)
	if !keep["hours"] {
		d.Hours = nil
	}
	if !keep["events"] {
		d.Events = nil
	}
	return d
}

// FilterHour returns a copy of h holding only the named elements. The time
// of day is always kept.
func FilterHour(h Hour, elements ...string) Hour {
	h = h.clone()
	keepFields(&h, hourFields, elementSet(elements))
	return h
}

func keepFields[R any](r *R, fields []field[R], keep map[string]bool) {
	for _, f := range fields {
		if !keep[f.key] {
			f.reset(r)
		}
	}
}

func elementSet(elements []string) map[string]bool {
	set := make(map[string]bool, len(elements))
	for _, e := range elements {
		set[e] = true
	}
	return set
}
