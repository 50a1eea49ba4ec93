package jira

import "testing"

func TestParseSprintBlob(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want SprintRef
		ok   bool
	}{
		{
			name: "full blob",
			in:   "com.atlassian.greenhopper.service.sprint.Sprint@6e[id=42,rapidViewId=7,state=ACTIVE,name=Sprint 3,startDate=2024-06-01T00:00:00.000Z]",
			want: SprintRef{ID: 42, State: "ACTIVE", Name: "Sprint 3"},
			ok:   true,
		},
		{
			name: "minimal blob",
			in:   "Sprint@1[id=7,state=CLOSED]",
			want: SprintRef{ID: 7, State: "CLOSED"},
			ok:   true,
		},
		{name: "no brackets", in: "id=42,state=ACTIVE", ok: false},
		{name: "garbage id", in: "Sprint@1[id=abc]", ok: false},
		{name: "missing id", in: "Sprint@1[state=ACTIVE]", ok: false},
		{name: "empty", in: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseSprintBlob(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok: got %v want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestSprintRefs_StructuredAndBlobs(t *testing.T) {
	t.Parallel()

	structured := sprintRefs([]byte(`[{"id":42,"state":"ACTIVE","name":"Sprint 3"}]`))
	if len(structured) != 1 || structured[0].ID != 42 {
		t.Fatalf("structured: %+v", structured)
	}

	blobs := sprintRefs([]byte(`["Sprint@1[id=7,state=CLOSED]","Sprint@2[id=8,state=ACTIVE]"]`))
	if len(blobs) != 2 || blobs[0].ID != 7 || blobs[1].ID != 8 {
		t.Fatalf("blobs: %+v", blobs)
	}

	if got := sprintRefs(nil); got != nil {
		t.Fatalf("nil field: %+v", got)
	}
	if got := sprintRefs([]byte(`"not an array"`)); got != nil {
		t.Fatalf("bad shape: %+v", got)
	}
}
