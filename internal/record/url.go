package record

// BuildURL composes the absolute URL of r. Host, path and query are assumed
// to be encoded already and are used verbatim.
func BuildURL(r Record) string {
	scheme := "http"
	if r.IsHTTPS {
		scheme = "https"
	}
	url := scheme + "://" + r.Host + r.Path
	if r.QueryString != "" {
		url += r.QueryString
	}
	return url
}
