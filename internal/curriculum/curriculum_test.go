package curriculum

import "testing"

func TestID(t *testing.T) {
	tests := []struct {
		name string
		req  DiscoveryRequest
		want string
	}{
		{
			"with-region",
			DiscoveryRequest{Country: "US", Region: "CA", Grade: 5, Subject: "Mathematics"},
			"cur_us_ca_mathematics_grade5_v1",
		},
		{
			"national",
			DiscoveryRequest{Country: "US", Grade: 3, Subject: "Mathematics"},
			"cur_us_mathematics_grade3_v1",
		},
		{
			"multi-word-subject",
			DiscoveryRequest{Country: "MY", Region: "Selangor", Grade: 7, Subject: "Computer Science"},
			"cur_my_selangor_computer_science_grade7_v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ID(tt.req); got != tt.want {
				t.Errorf("ID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"en-US", "en"},
		{"English", "en"},
		{"French", "fr"},
		{"ms", "ms"},
		{"", "en"},
		{"??", "en"},
	}

	for _, tt := range tests {
		if got := NormalizeLanguage(tt.in); got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestObjectiveIDs_Order(t *testing.T) {
	topic := Topic{
		ID: "t1_fractions",
		Objectives: []Objective{
			{ID: "obj_t1_001"}, {ID: "obj_t1_002"}, {ID: "obj_t1_003"},
		},
	}

	ids := topic.ObjectiveIDs()
	want := []string{"obj_t1_001", "obj_t1_002", "obj_t1_003"}
	if len(ids) != len(want) {
		t.Fatalf("got %d ids, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
