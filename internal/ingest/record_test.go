package ingest

import "testing"

func TestParseRecordVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		line string
		want Record
	}{
		{
			name: "numeric engine on",
			line: "12,2026-01-01T10:00:00,88.5,1,OK",
			want: Record{VehicleID: 12, Timestamp: "2026-01-01T10:00:00", Speed: 88.5, EngineOn: true, Status: StatusOK},
		},
		{
			name: "engine off overheat",
			line: "3,t1,0.0,OFF,ENGINE_OVERHEAT",
			want: Record{VehicleID: 3, Timestamp: "t1", Speed: 0, EngineOn: false, Status: StatusOverheat},
		},
		{
			name: "sensor failure alias",
			line: "4,t2,55.25,ON,ENGINE_SENSOR_FAIL",
			want: Record{VehicleID: 4, Timestamp: "t2", Speed: 55.25, EngineOn: true, Status: StatusSensorFailure},
		},
		{
			name: "unknown status maps to unknown",
			line: "5,t3,10,ENGINE_OK,WHATEVER",
			want: Record{VehicleID: 5, Timestamp: "t3", Speed: 10, EngineOn: true, Status: StatusUnknown},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord(tt.line)
			if err != nil {
				t.Fatalf("ParseRecord(%q) error: %v", tt.line, err)
			}
			if got != tt.want {
				t.Fatalf("ParseRecord(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseRecordMalformed(t *testing.T) {
	t.Parallel()
	lines := []string{
		"",                      // no fields
		"1,t,50,ON",             // too few fields
		"1,t,50,ON,OK,extra",    // too many fields
		"abc,t,50,ON,OK",        // bad id
		"1,t,fast,ON,OK",        // bad speed
		"1,t,50,SIDEWAYS,OK",    // bad engine flag
	}
	for _, line := range lines {
		if _, err := ParseRecord(line); err == nil {
			t.Fatalf("ParseRecord(%q) should fail", line)
		}
	}
}

func TestRecordFormat(t *testing.T) {
	t.Parallel()
	r := Record{VehicleID: 7, Timestamp: "t9", Speed: 42.5, EngineOn: true, Status: StatusOverheat}
	want := "ID:7,Time:t9,Speed:42.50,Engine:ON,ErrorCode:1"
	if got := r.Format(); got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}
