package extract

const maxPlainTitleLength = 100

func extractPlain(raw, sourceURL string) Result {
	title := Truncate(firstLine(raw), maxPlainTitleLength)
	if title == "" {
		title = sourceURL
	}
	return Result{Title: title, CleanText: raw}
}
