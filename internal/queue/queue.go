package queue

// Queue is an insertion-ordered set of URLs. It is used by a single flow
// and is not safe for concurrent use.
type Queue struct {
	urls []string
	seen map[string]bool
}

// New creates an empty Queue
func New() *Queue {
	return &Queue{
		urls: make([]string, 0),
		seen: make(map[string]bool),
	}
}

// Add appends url unless it is empty or was added before
func (q *Queue) Add(url string) bool {
	if url == "" || q.seen[url] {
		return false
	}

	q.seen[url] = true
	q.urls = append(q.urls, url)
	return true
}

// AddAll adds each url in order and returns how many were new
func (q *Queue) AddAll(urls []string) int {
	added := 0
	for _, url := range urls {
		if q.Add(url) {
			added++
		}
	}
	return added
}

// Items returns the URLs in first-seen order
func (q *Queue) Items() []string {
	out := make([]string, len(q.urls))
	copy(out, q.urls)
	return out
}

// Len returns the number of distinct URLs
func (q *Queue) Len() int {
	return len(q.urls)
}
