package pipeline

import (
	"github.com/Eldo84/live-health-sub002/internal/category"
	"github.com/Eldo84/live-health-sub002/internal/model"
)

// StaticSample is the last-resort output. It is returned as a fresh copy so
// callers may modify it.
func StaticSample() []model.OutbreakSignal {
	return []model.OutbreakSignal{
		{
			ID:       "static-cholera-yemen",
			Disease:  "Cholera",
			Location: "Yemen",
			Category: category.Waterborne,
			Pathogen: "Vibrio cholerae",
			Keywords: "cholera",
			Position: model.Position{Lat: 15.55, Lon: 48.52},
			Source:   "static",
		},
		{
			ID:       "static-dengue-brazil",
			Disease:  "Dengue",
			Location: "Brazil",
			Category: category.VectorBorne,
			Pathogen: "Dengue virus",
			Keywords: "dengue",
			Position: model.Position{Lat: -14.24, Lon: -51.93},
			Source:   "static",
		},
		{
			ID:       "static-mpox-drc",
			Disease:  "Mpox",
			Location: "Democratic Republic of Congo",
			Category: category.Zoonotic,
			Pathogen: "Monkeypox virus",
			Keywords: "mpox",
			Position: model.Position{Lat: -4.04, Lon: 21.76},
			Source:   "static",
		},
		{
			ID:       "static-measles-nigeria",
			Disease:  "Measles",
			Location: "Nigeria",
			Category: category.VaccinePrev,
			Pathogen: "Measles virus",
			Keywords: "measles",
			Position: model.Position{Lat: 9.08, Lon: 8.68},
			Source:   "static",
		},
		{
			ID:       "static-h5n1-cambodia",
			Disease:  "Avian Influenza A(H5N1)",
			Location: "Cambodia",
			Category: category.Respiratory,
			Pathogen: "Influenza A virus (H5N1)",
			Keywords: "bird flu, h5n1",
			Position: model.Position{Lat: 12.57, Lon: 104.99},
			Source:   "static",
		},
	}
}
