package web

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"

	"immo-estimator/form"
	"immo-estimator/services"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Real estate appraisal</title>
<style>
body { font-family: 'Inter', sans-serif; max-width: 640px; margin: 2rem auto; }
progress { width: 100%; }
label { display: block; margin: .6rem 0; }
button { background-color: #0F5FA6; color: white; font-size: 16px; padding: 12px 20px; border-radius: 8px; border: none; width: 170px; }
button:hover { background-color: #0A4775; cursor: pointer; }
button.link { background: none; color: #0F5FA6; width: auto; padding: 0; }
.error { color: #B00020; }
.price { font-size: 24px; font-weight: 600; color: #0A4775; }
</style>
</head>
<body>
<h1>Real estate appraisal</h1>
<progress value="{{.Progress}}" max="100">{{.Progress}}%</progress>
<h2>{{.Title}}</h2>
{{with .Error}}<p class="error">{{.}}</p>{{end}}
<form method="post" action="/">
{{range .Fields}}
  {{if eq .Kind "number"}}
  <label>{{.Label}} <input type="number" name="{{.Name}}" value="{{.Value}}" min="{{.Min}}"{{with .Max}} max="{{.}}"{{end}} step="1"></label>
  {{else if eq .Kind "checkbox"}}
  <label><input type="checkbox" name="{{.Name}}"{{if .Checked}} checked{{end}}> {{.Label}}</label>
  {{else}}
  <label>{{.Label}} <select name="{{.Name}}">
    {{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}
  </select></label>
  {{end}}
{{end}}
{{if .Price}}<p class="price">Predicted Price: {{.Price}}</p>{{end}}
{{if .CanGoBack}}<button class="link" type="submit" name="action" value="back">Back</button>{{end}}
{{if .Final}}<button type="submit" name="action" value="restart">Restart</button>
{{else}}<button type="submit" name="action" value="next">Next</button>{{end}}
</form>
</body>
</html>
`))

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type fieldView struct {
	Name    string
	Label   string
	Kind    string
	Value   string
	Min     string
	Max     string
	Checked bool
	Options []optionView
}

type pageView struct {
	Title     string
	Progress  int
	Error     string
	Fields    []fieldView
	Price     string
	CanGoBack bool
	Final     bool
}

func (s *Server) render(w http.ResponseWriter, status int, st sessionState, errMsg string) {
	view := pageView{
		Title:     form.Title(st.state),
		Progress:  int(form.Progress(st.state) * 100),
		Error:     errMsg,
		CanGoBack: st.state != form.Details,
		Final:     st.state == form.Result,
	}
	if view.Final {
		view.Price = services.FormatPrice(st.price)
	}
	for _, f := range form.StepFields(st.state, s.opts) {
		view.Fields = append(view.Fields, newFieldView(f, st.fields))
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, view); err != nil {
		s.logger.Error("[web] Render failed: %v", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func newFieldView(f form.Field, values form.Fields) fieldView {
	current, has := values[f.Name]
	v := fieldView{Name: f.Name, Label: f.Label}

	switch f.Kind {
	case form.Number:
		v.Kind = "number"
		v.Min = strconv.FormatFloat(f.Min, 'f', -1, 64)
		if f.Max < 1e9 {
			v.Max = strconv.FormatFloat(f.Max, 'f', -1, 64)
		}
		v.Value = strconv.FormatFloat(f.Default, 'f', -1, 64)
		if has {
			v.Value = current
		}
	case form.Checkbox:
		v.Kind = "checkbox"
		v.Checked = current == "True"
	case form.Select:
		v.Kind = "select"
		for i, o := range f.Options {
			sel := current == o.Value || (!has && i == 0)
			v.Options = append(v.Options, optionView{Value: o.Value, Label: o.Label, Selected: sel})
		}
	}
	return v
}
