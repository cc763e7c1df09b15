package hierarchy

import "testing"

func TestLayerFor_Bands(t *testing.T) {
	bounds := DefaultLayerBounds()

	tests := []struct {
		level int
		want  Layer
	}{
		{-3, LayerSurvival},
		{0, LayerSurvival},
		{1, LayerWorker},
		{5, LayerWorker},
		{9, LayerWorker},
		{10, LayerTactical},
		{19, LayerTactical},
		{20, LayerStrategic},
		{39, LayerStrategic},
		{40, LayerExecutive},
		{99, LayerExecutive},
	}

	for _, tt := range tests {
		if got := bounds.LayerFor(tt.level); got != tt.want {
			t.Errorf("LayerFor(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestLayer_Ordering(t *testing.T) {
	ordered := []Layer{LayerSurvival, LayerWorker, LayerTactical, LayerStrategic, LayerExecutive}
	for i := 1; i < len(ordered); i++ {
		if !ordered[i].Above(ordered[i-1]) {
			t.Errorf("%v should be above %v", ordered[i], ordered[i-1])
		}
		if ordered[i-1].Above(ordered[i]) {
			t.Errorf("%v should not be above %v", ordered[i-1], ordered[i])
		}
	}
	if LayerWorker.Above(LayerWorker) {
		t.Error("a layer must not be above itself")
	}
}

func TestTierFor(t *testing.T) {
	bounds := DefaultLayerBounds()

	tests := []struct {
		level int
		want  Tier
	}{
		{5, TierWorker},
		{12, TierTeamLeader},
		{25, TierDeputy},
		{50, TierSupervisor},
	}
	for _, tt := range tests {
		if got := bounds.TierFor(tt.level); got != tt.want {
			t.Errorf("TierFor(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestPrivilegesFor_Inheritance(t *testing.T) {
	bounds := DefaultLayerBounds()

	prefixes := func(level int) map[string]bool {
		set := make(map[string]bool)
		for _, cmd := range bounds.PrivilegesFor(level).Commands {
			set[cmd.Prefix] = true
		}
		return set
	}

	worker := prefixes(5)
	leader := prefixes(12)
	deputy := prefixes(25)
	supervisor := prefixes(50)

	for prefix := range worker {
		if !leader[prefix] {
			t.Errorf("team leader missing inherited worker command %s", prefix)
		}
	}
	for prefix := range leader {
		if !deputy[prefix] {
			t.Errorf("deputy missing inherited command %s", prefix)
		}
	}
	for prefix := range deputy {
		if !supervisor[prefix] {
			t.Errorf("supervisor missing inherited command %s", prefix)
		}
	}

	if worker["SUPPRESS"] {
		t.Error("worker should not have SUPPRESS")
	}
	if !leader["SUPPRESS"] {
		t.Error("team leader should have SUPPRESS")
	}
	if !deputy["ARBITRATE"] {
		t.Error("deputy should have ARBITRATE")
	}
}

func TestPrivilegesFor_SurvivalHasNoCommands(t *testing.T) {
	bounds := DefaultLayerBounds()

	for _, level := range []int{0, -3} {
		if cmds := bounds.PrivilegesFor(level).Commands; len(cmds) != 0 {
			t.Errorf("PrivilegesFor(%d).Commands = %+v, want none", level, cmds)
		}
		if ok, reason := bounds.ValidateCommand(level, "BROADCAST"); ok || reason == "" {
			t.Errorf("ValidateCommand(%d, BROADCAST) should be denied with a reason", level)
		}
	}
}

func TestValidateCommand(t *testing.T) {
	bounds := DefaultLayerBounds()

	if ok, _ := bounds.ValidateCommand(5, "BROADCAST"); !ok {
		t.Error("worker should be allowed to BROADCAST")
	}
	if ok, reason := bounds.ValidateCommand(5, "SUPPRESS"); ok || reason == "" {
		t.Error("worker SUPPRESS should be denied with a reason")
	}
	if ok, _ := bounds.ValidateCommand(12, "SUPPRESS"); !ok {
		t.Error("team leader should be allowed to SUPPRESS")
	}

	// POLICY is planned: denied even for supervisors.
	if ok, reason := bounds.ValidateCommand(50, "POLICY"); ok {
		t.Errorf("planned command must be denied at every level, got ok with reason %q", reason)
	}
}

func TestVoteBounds(t *testing.T) {
	policy := DefaultPolicy()

	worker := policy.VoteBoundsFor(5)
	if worker.Allows(11) {
		t.Error("worker +11 should exceed bounds")
	}
	if !worker.Allows(10) {
		t.Error("worker +10 should be allowed")
	}
	if worker.Allows(-6) {
		t.Error("worker -6 should exceed bounds")
	}
	if !worker.Allows(-5) {
		t.Error("worker -5 should be allowed")
	}
	if worker.Allows(0) {
		t.Error("zero delta should never be allowed")
	}

	supervisor := policy.VoteBoundsFor(50)
	if !supervisor.Allows(50) || supervisor.Allows(51) {
		t.Error("supervisor upvote bound should be exactly 50")
	}
}
