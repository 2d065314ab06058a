// Package sdk is an HTTP client for a running wfassist server.
//
//	c, _ := sdk.New("http://localhost:8080", sdk.WithAPIKey(os.Getenv("WFASSIST_API_KEY")))
//	res, _ := c.Search(ctx, "email me when a task is late", 3)
//	gen, _ := c.Generate(ctx, "send slack alert when a build fails")
//	fmt.Println(gen.Validation.Valid, gen.Validation.Coverage)
//
// Server errors come back as *APIError and match the package sentinels with
// errors.Is, so callers can branch on ErrNotFound, ErrInvalidK and friends
// without parsing messages.
package sdk
