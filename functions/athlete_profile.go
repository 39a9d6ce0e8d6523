// Package functions declares the tools the coaching model can call
// mid-session.
package functions

import (
	"google.golang.org/genai"

	"github.com/sculptai/posecoach/bodymetrics"
)

// GetAthleteProfileDeclaration returns the function declaration for the
// athlete-profile lookup tool.
func GetAthleteProfileDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "GetAthleteProfile",
		Description: "Get the athlete's current measurements, V-Taper ratio and training goal",
	}
}

// AthleteProfileResponse resolves the tool call against a profile.
func AthleteProfileResponse(p bodymetrics.Profile) map[string]any {
	resp := map[string]any{
		"name":       p.Name,
		"goal":       p.Goal,
		"shoulderCm": p.ShoulderCm(),
		"waistCm":    p.WaistCm(),
	}
	ratio, err := p.VTaper()
	if err != nil {
		resp["vTaperError"] = err.Error()
		return resp
	}
	resp["vTaper"] = ratio
	resp["vTaperBand"] = bodymetrics.Classify(ratio)
	return resp
}

// BuildTools assembles the tool set offered to the live session.
func BuildTools() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				GetAthleteProfileDeclaration(),
			},
		},
	}
}
