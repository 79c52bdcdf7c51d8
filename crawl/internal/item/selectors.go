package item

// Field selector chains, ordered by how often each variant has been seen in
// the wild. The platform rotates generated class names, so data-e2e hooks
// come first and class-substring matches are the fallback. Update these when
// extraction starts returning empty fields.

var postedAtChain = []string{
	`[data-e2e="search-card-time"]`,
	`div[class*="DivTimeTag"]`,
	`span[class*="SpanOtherInfos"] span:last-child`,
	`time`,
}

var videoURLChain = []string{
	`a[href*="/video/"]`,
	`div[class*="DivWrapper"] > a`,
	`a[data-e2e="search-card-video-link"]`,
}

var thumbnailChain = []string{
	`picture img`,
	`img[class*="ImgPoster"]`,
	`img`,
}

var hashtagChain = []string{
	`a[data-e2e="search-common-link"]`,
	`a[href^="/tag/"]`,
	`strong[class*="StrongText"]`,
}

var authorChain = []string{
	`[data-e2e="search-card-user-unique-id"]`,
	`p[class*="PUniqueId"]`,
	`a[href^="/@"] p`,
}

var viewCountChain = []string{
	`[data-e2e="video-views"]`,
	`strong[class*="StrongVideoCount"]`,
	`div[class*="DivPlayCount"]`,
}
