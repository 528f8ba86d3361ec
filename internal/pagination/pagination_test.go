package pagination

import (
	"reflect"
	"testing"
)

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name      string
		req       PageRequest
		wantData  []int
		wantPages int
	}{
		{"defaults", PageRequest{}, []int{1, 2, 3, 4, 5}, 1},
		{"first page", PageRequest{Page: 1, PageSize: 2}, []int{1, 2}, 3},
		{"last partial page", PageRequest{Page: 3, PageSize: 2}, []int{5}, 3},
		{"past the end", PageRequest{Page: 9, PageSize: 2}, []int{}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slice(items, tt.req)
			if !reflect.DeepEqual(got.Data, tt.wantData) {
				t.Errorf("Data = %v, want %v", got.Data, tt.wantData)
			}
			if got.TotalItems != 5 || got.TotalPages != tt.wantPages {
				t.Errorf("TotalItems = %d, TotalPages = %d", got.TotalItems, got.TotalPages)
			}
		})
	}
}

func TestNewPageResponse_NilData(t *testing.T) {
	got := NewPageResponse[string](nil, 1, 20, 0)
	if got.Data == nil || got.TotalPages != 0 {
		t.Errorf("unexpected response %+v", got)
	}
}
