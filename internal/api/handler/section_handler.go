package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketing-access/internal/core/ports"
)

// SectionHandler stands in for the marketing pages. It only reports which
// section was reached and by whom; the pages themselves live elsewhere.
type SectionHandler struct{}

func NewSectionHandler() *SectionHandler {
	return &SectionHandler{}
}

type sectionResponse struct {
	Section string `json:"section"`
	Path    string `json:"path"`
	User    string `json:"user"`
}

func (h *SectionHandler) Show(s ports.Section) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := currentUser(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, sectionResponse{
			Section: s.Name,
			Path:    s.Path,
			User:    id.Username(),
		})
	}
}
