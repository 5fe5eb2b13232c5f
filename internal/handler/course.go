package handler

import (
	"net/http"

	"course-purchase/internal/dto"
	"course-purchase/internal/service"

	"github.com/labstack/echo/v4"
)

type CourseHandler struct {
	catalogService *service.CatalogService
}

func NewCourseHandler(catalogService *service.CatalogService) *CourseHandler {
	return &CourseHandler{
		catalogService: catalogService,
	}
}

func (h *CourseHandler) ListCourses(c echo.Context) error {
	ctx := c.Request().Context()

	courses, err := h.catalogService.List(ctx)
	if err != nil {
		return err
	}

	resp := make([]*dto.CourseResponse, 0, len(courses))
	for _, course := range courses {
		resp = append(resp, dto.NewCourseResponse(course))
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *CourseHandler) GetCourse(c echo.Context) error {
	ctx := c.Request().Context()

	course, err := h.catalogService.FindByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewCourseResponse(course))
}
