package handler

import (
	"net/url"
	"strconv"

	"github.com/cuongbtq/dataset-hub/internal/api/domain"
)

// pageLinks builds the previous and next URLs of page. params returns the
// query of a given page number; keys are encoded in sorted order.
func pageLinks(path string, page domain.Page, count int, params func(number int) url.Values) (previous, next *string) {
	if page.HasPrevious() {
		previous = pageURL(path, params(page.Number-1))
	}
	if page.HasNext(count) {
		next = pageURL(path, params(page.Number+1))
	}
	return previous, next
}

func pageURL(path string, params url.Values) *string {
	u := path + "?" + params.Encode()
	return &u
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
