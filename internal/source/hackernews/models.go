package hackernews

// SearchResponse represents the Algolia HN search API response structure.
type SearchResponse struct {
	Hits        []Hit `json:"hits"`
	Page        int   `json:"page"`
	NbPages     int   `json:"nbPages"`
	HitsPerPage int   `json:"hitsPerPage"`
}

type Hit struct {
	ObjectID    string  `json:"objectID"`
	Title       string  `json:"title"`
	StoryText   *string `json:"story_text"`
	URL         *string `json:"url"`
	Author      string  `json:"author"`
	Points      *int    `json:"points"`
	NumComments *int    `json:"num_comments"`
	CreatedAtI  int64   `json:"created_at_i"`
}
