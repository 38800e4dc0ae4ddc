package database

// Run is one archived digest run.
type Run struct {
	ID            int64
	RunDate       string
	GeneratedAt   string
	Sources       int
	FailedSources int
	RawItems      int
	Filtered      int
	Unique        int
	Published     int
	Pulse         string
	Outlook       string
}

// RunItem is an item that appeared in a published digest.
type RunItem struct {
	RunID          int64
	Section        string
	Position       int
	Title          string
	URL            string
	Source         *string
	PublishedAt    *string
	RelevanceScore int
	CategoryScore  int
	Significance   *string
}

// SourceFailure records a source that could not be fetched during a run.
type SourceFailure struct {
	Source string
	URL    string
	Error  string
}

// Stats contains aggregate archive statistics.
type Stats struct {
	Runs           int
	Days           int
	PublishedItems int
	DistinctURLs   int
	SourceFailures int
	LastRunDate    string
}
