// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"net/http"

	"github.com/google/safehtml/template"
	"golang.org/x/perf/forensics/dataset"
	"golang.org/x/perf/forensics/params"
	"golang.org/x/perf/forensics/query"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Forensics</title></head>
<body>
<h1>Datasets</h1>
{{if .Datasets}}
<table>
<tr><th>Name</th><th>Dimensions</th><th>Versions</th></tr>
{{range .Datasets}}
<tr><td>{{.Name}}</td><td>{{range $i, $d := .Dimensions}}{{if $i}}, {{end}}{{$d}}{{end}}</td><td>{{.Versions}}</td></tr>
{{end}}
</table>
{{else}}
<p>No datasets are loaded.</p>
{{end}}
<h2>Variables</h2>
<ul>{{range .Variables}}<li>{{.}}</li>{{end}}</ul>
<h2>Presets</h2>
<ul>{{range .Presets}}<li>{{.}}</li>{{end}}</ul>
<h2>Upload</h2>
<form method="post" action="/upload" enctype="multipart/form-data">
<input type="file" name="file" multiple>
<input type="submit" value="Upload">
</form>
</body>
</html>
`))

type indexDataset struct {
	Name       string
	Dimensions []string
	Versions   int
}

type indexData struct {
	Datasets  []indexDataset
	Variables []string
	Presets   []string
}

// index is the handler for "/". It lists the loaded datasets.
func (a *App) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ds := a.current()
	var data indexData
	for _, t := range ds.Trees() {
		d := indexDataset{Name: t.Name, Dimensions: t.DimensionNames()}
		if name := t.MetaDimension(); name != "" {
			if dim, err := t.Dimension(name); err == nil {
				d.Versions = len(dim.Categories)
			}
		}
		data.Datasets = append(data.Datasets, d)
	}
	for _, v := range ds.Variables() {
		data.Variables = append(data.Variables, query.DisplayName(v))
	}
	cat := a.Catalog
	if cat == nil {
		cat = params.DefaultCatalog()
	}
	for _, p := range cat.Presets {
		data.Presets = append(data.Presets, p.Name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		errorf(requestContext(r), "index: %v", err)
	}
}

// datasets is the handler for /datasets. It serves the loaded
// datasets in the JSON format read by dataset.Decode.
func (a *App) datasets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := dataset.Encode(w, a.current().Trees()); err != nil {
		errorf(requestContext(r), "datasets: %v", err)
		http.Error(w, err.Error(), 500)
	}
}
