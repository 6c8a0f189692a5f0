package listutil

import (
	"errors"
	"net/url"
	"testing"
)

func TestParsePageParams_Absent(t *testing.T) {
	_, ok, err := ParsePageParams(url.Values{"q": {"asha"}})
	if err != nil || ok {
		t.Errorf("ok = %v, err = %v; want not paged", ok, err)
	}
}

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name    string
		q       url.Values
		want    PageParams
		wantErr bool
	}{
		{"page only", url.Values{"page": {"3"}}, PageParams{Page: 3, PerPage: DefaultPerPage}, false},
		{"per_page only", url.Values{"per_page": {"10"}}, PageParams{Page: 1, PerPage: 10}, false},
		{"both", url.Values{"page": {"2"}, "per_page": {"25"}}, PageParams{Page: 2, PerPage: 25}, false},
		{"capped", url.Values{"per_page": {"9000"}}, PageParams{Page: 1, PerPage: MaxPerPage}, false},
		{"zero page", url.Values{"page": {"0"}}, PageParams{}, true},
		{"negative per_page", url.Values{"per_page": {"-5"}}, PageParams{}, true},
		{"not a number", url.Values{"page": {"two"}}, PageParams{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParsePageParams(tt.q)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPage) {
					t.Fatalf("err = %v, want ErrInvalidPage", err)
				}
				return
			}
			if err != nil || !ok {
				t.Fatalf("ok = %v, err = %v", ok, err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewPageInfo_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		page, per int
		total     int
		start     int
		end       int
		pages     int
		next      bool
	}{
		{"first page", 1, 10, 25, 0, 10, 3, true},
		{"last partial page", 3, 10, 25, 20, 25, 3, false},
		{"past the end", 5, 10, 25, 25, 25, 3, false},
		{"empty", 1, 10, 0, 0, 0, 1, false},
		{"exact fit", 2, 5, 10, 5, 10, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewPageInfo(PageParams{Page: tt.page, PerPage: tt.per}, tt.total)
			start, end := info.Bounds()
			if start != tt.start || end != tt.end {
				t.Errorf("bounds = [%d, %d), want [%d, %d)", start, end, tt.start, tt.end)
			}
			if info.TotalPages != tt.pages {
				t.Errorf("TotalPages = %d, want %d", info.TotalPages, tt.pages)
			}
			if info.HasNext() != tt.next {
				t.Errorf("HasNext = %v, want %v", info.HasNext(), tt.next)
			}
		})
	}
}

func TestNewPageInfo_Defaults(t *testing.T) {
	info := NewPageInfo(PageParams{}, 7)
	if info.Page != 1 || info.PerPage != DefaultPerPage {
		t.Errorf("info = %+v", info)
	}
}
