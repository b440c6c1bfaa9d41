package handlers

import "filmarchive/internal/gallery"

type Handler struct {
	gallery *gallery.Service
}

func New(gallery *gallery.Service) *Handler {
	return &Handler{
		gallery: gallery,
	}
}
