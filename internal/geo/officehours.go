package geo

// WithinOfficeHours reports whether nowHHMM falls in [start, end]. Missing
// bounds mean the location has no hours set, which always passes.
// Zero-padded "HH:MM" strings sort the same as the times they encode.
func WithinOfficeHours(start, end *string, nowHHMM string) bool {
	if start == nil || end == nil || *start == "" || *end == "" {
		return true
	}
	return *start <= nowHHMM && nowHHMM <= *end
}
