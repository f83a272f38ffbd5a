package scraper

// CSS selectors and page scripts used against the listings provider and the
// search engine.
const (
	consentButtonSelector = `button[aria-label="Accept all"]`
	searchBoxSelector     = `#searchboxinput`
	resultsFeedSelector   = `div[role="feed"]`
	placeTitleSelector    = `h1`
)

// scrollFeedJS scrolls the results feed to its end and reports its height.
const scrollFeedJS = `(() => {
	const feed = document.querySelector('div[role="feed"]');
	if (!feed) return 0;
	feed.scrollTo(0, feed.scrollHeight);
	return feed.scrollHeight;
})()`

const placeLinksJS = `Array.from(document.querySelectorAll('a[href*="/maps/place/"]'))
	.map(a => a.href || '')`

// placeFactsJS reads the name, address, phone and authority link of a place view.
const placeFactsJS = `(() => {
	const title = document.querySelector('h1');
	const out = { name: title ? title.textContent : '', address: '', phone: '', website: '' };
	for (const btn of document.querySelectorAll('button[data-item-id]')) {
		const id = btn.getAttribute('data-item-id') || '';
		const text = btn.getAttribute('aria-label') || btn.textContent || '';
		if (id.includes('address')) out.address = text;
		if (id.includes('phone')) out.phone = text;
	}
	const site = document.querySelector('a[data-item-id="authority"]');
	if (site) out.website = site.getAttribute('href') || '';
	return out;
})()`

const searchResultLinksJS = `Array.from(document.querySelectorAll('div.g a'))
	.map(a => a.getAttribute('href') || '')`
