// Package wfassist embeds the workflow assistant in-process: a TF-IDF
// retriever over reference workflow examples and a JSON-schema validator with
// a required-field coverage score.
//
//	client, _ := wfassist.New(
//	    wfassist.WithExamples(examples...),
//	    wfassist.WithSchemaJSON(schemaBytes),
//	)
//	matches, _ := client.Search(ctx, "email the team when a job is late", 3)
//	report, _ := client.Check(ctx, generatedConfig)
//	fmt.Println(report.Valid, report.Errors, report.Coverage)
//
// Without WithExamples or a schema option the built-in demo corpus and
// workflow schema are used.
package wfassist
