package types

// JSON-RPC method names served by the item server
const (
	MethodItemsCount = "items.count"
	MethodItemsFetch = "items.fetch"
)

// FetchItemsParams requests the half-open index range [Start, End)
type FetchItemsParams struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FetchItemsResult carries the items of a range in index order
type FetchItemsResult struct {
	Items []ListItem `json:"items"`
}

// CountResult reports the number of items available
type CountResult struct {
	Count int `json:"count"`
}
