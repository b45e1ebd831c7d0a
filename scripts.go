package canvascap

// In-page functions evaluated through Session.Evaluate and
// Session.WaitPredicate. Each takes its inputs as arguments so the same
// source is reused for every page.
const (
	jsPresent = `(sel) => document.querySelector(sel) !== null`

	jsAbsent = `(sel) => {
	const el = document.querySelector(sel);
	if (el === null) return true;
	const st = window.getComputedStyle(el);
	return st.display === 'none' || st.visibility === 'hidden' || el.getClientRects().length === 0;
}`

	jsNonEmptyText = `(sel) => {
	const el = document.querySelector(sel);
	return el != null && el.innerText.length > 0;
}`

	jsInnerText = `(sel) => document.querySelector(sel).innerText`

	jsScrollIntoView = `(sel) => { document.querySelector(sel).scrollIntoView(); }`

	// Reads the intrinsic raster size, not the CSS box.
	jsCanvasSize = `(sel) => {
	const c = document.querySelector(sel);
	return {
		width: parseInt(c.getAttribute('width'), 10) || 0,
		height: parseInt(c.getAttribute('height'), 10) || 0,
	};
}`

	jsToDataURL = `(sel) => document.querySelector(sel).toDataURL()`

	jsSetLocalStorage = `(key, value) => { localStorage.setItem(key, value); }`
)

// CanvasSize is a canvas's raster size, read from its width and height
// attributes.
type CanvasSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
