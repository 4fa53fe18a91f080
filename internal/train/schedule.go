package train

// Schedule is a learning-rate schedule: linear warmup from zero to BaseLR,
// then linear decay towards MinLR over DecaySteps.
type Schedule struct {
	BaseLR      float32
	MinLR       float32
	WarmupSteps int
	DecaySteps  int
}

// LR returns the learning rate for a zero-based step.
func (s Schedule) LR(step int) float32 {
	if step < s.WarmupSteps {
		return s.BaseLR / float32(s.WarmupSteps) * float32(step)
	}
	if s.DecaySteps <= 0 {
		return s.BaseLR
	}
	decayed := s.BaseLR - (s.BaseLR-s.MinLR)*float32(step-s.WarmupSteps)/float32(s.DecaySteps)
	return max(s.MinLR, decayed)
}
