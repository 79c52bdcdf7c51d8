package feed

// containerSelectors are the feed-item container candidates, tried in order
// until one yields any elements. The platform rotates generated class names
// between deploys; data-e2e hooks are the most stable, class-substring
// patterns cover older layouts. Update here when a feed starts coming back
// empty on pages that visibly have results.
var containerSelectors = []string{
	`[data-e2e="search_top-item"]`,
	`[data-e2e="search-card-item"]`,
	`div[class*="DivItemContainerForSearch"]`,
	`div[class*="DivItemContainerV2"]`,
	`div[class*="DivItemContainer"]`,
	`div[class*="video-feed-item"]`,
}
