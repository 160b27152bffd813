package demoserver

import "net/http"

// PageVersion is one version of a page: its status and response headers.
// Headers may carry several values per name; names are sent as written.
type PageVersion struct {
	Status  int
	Headers http.Header
	Body    string
}

// PageDefinition holds all versions of a single page.
type PageDefinition struct {
	Path        string
	Description string
	Versions    map[int]PageVersion
}

// GetAllPages returns all demo page definitions.
func GetAllPages() []PageDefinition {
	return []PageDefinition{
		getHomePage(),
		getLoginPage(),
		getDownloadPage(),
		getGonePage(),
	}
}

func getHomePage() PageDefinition {
	return PageDefinition{
		Path:        "/",
		Description: "Home page with multi-valued ETag and Vary",
		Versions: map[int]PageVersion{
			1: {
				Status: http.StatusOK,
				Headers: http.Header{
					"Content-Type":  {"text/html; charset=utf-8"},
					"ETag":          {`"a"`, `"b"`},
					"Vary":          {"Accept-Encoding", "Cookie"},
					"Cache-Control": {"max-age=60"},
				},
				Body: "<html><body><h1>Home v1</h1></body></html>",
			},
			2: {
				Status: http.StatusOK,
				Headers: http.Header{
					"Content-Type":              {"text/html; charset=utf-8"},
					"ETag":                      {`"c"`},
					"Vary":                      {"Accept-Encoding"},
					"Cache-Control":             {"no-store"},
					"Strict-Transport-Security": {"max-age=31536000; includeSubDomains"},
				},
				Body: "<html><body><h1>Home v2</h1></body></html>",
			},
		},
	}
}

func getLoginPage() PageDefinition {
	return PageDefinition{
		Path:        "/login",
		Description: "Login page setting several cookies",
		Versions: map[int]PageVersion{
			1: {
				Status: http.StatusOK,
				Headers: http.Header{
					"Content-Type": {"text/html; charset=utf-8"},
					"Set-Cookie": {
						"session=abc123; Path=/",
						"theme=dark; Path=/",
					},
				},
				Body: "<form method=post><input name=user></form>",
			},
			2: {
				Status: http.StatusOK,
				Headers: http.Header{
					"Content-Type": {"text/html; charset=utf-8"},
					"Set-Cookie": {
						"session=abc123; Path=/; HttpOnly; Secure; SameSite=Strict",
						"theme=dark; Path=/",
					},
					"Content-Security-Policy": {"default-src 'self'"},
					"X-Frame-Options":         {"DENY"},
				},
				Body: "<form method=post><input name=user></form>",
			},
		},
	}
}

func getDownloadPage() PageDefinition {
	return PageDefinition{
		Path:        "/download",
		Description: "Binary download with a large declared length",
		Versions: map[int]PageVersion{
			1: {
				Status: http.StatusOK,
				Headers: http.Header{
					"Content-Type":        {"application/octet-stream"},
					"Content-Disposition": {`attachment; filename="data.bin"`},
					"Accept-Ranges":       {"bytes"},
				},
				Body: string(make([]byte, 4096)),
			},
		},
	}
}

func getGonePage() PageDefinition {
	return PageDefinition{
		Path:        "/gone",
		Description: "Removed page answering 404, then 410",
		Versions: map[int]PageVersion{
			1: {
				Status:  http.StatusNotFound,
				Headers: http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
				Body:    "not found",
			},
			2: {
				Status: http.StatusGone,
				Headers: http.Header{
					"Content-Type": {"text/plain; charset=utf-8"},
					"Link":         {`</>; rel="home"`, `</login>; rel="login"`},
				},
				Body: "gone",
			},
		},
	}
}
