package domain

// Filter returns the records whose ReportedDate lies strictly inside sel,
// in their original order. A nil sel returns records itself.
func Filter(records []Incident, sel *Selection) []Incident {
	if sel == nil {
		return records
	}
	out := make([]Incident, 0, len(records))
	for i := range records {
		if sel.Contains(records[i].ReportedDate) {
			out = append(out, records[i])
		}
	}
	return out
}
