package ai

import (
	"testing"

	"github.com/cenktekin/todoist-subtask-generator/pkg/models"
)

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		resp    models.GenerationResponse
		wantErr bool
	}{
		{
			name: "valid full subtask",
			resp: models.GenerationResponse{Subtasks: []models.Subtask{
				{Content: "Taslağı hazırla", Due: "2025-03-10", Priority: 3},
			}},
		},
		{
			name: "valid minimal subtask",
			resp: models.GenerationResponse{Subtasks: []models.Subtask{
				{Content: "Gözden geçir"},
			}},
		},
		{
			name:    "empty subtasks",
			resp:    models.GenerationResponse{},
			wantErr: true,
		},
		{
			name: "missing content",
			resp: models.GenerationResponse{Subtasks: []models.Subtask{
				{Due: "2025-03-10"},
			}},
			wantErr: true,
		},
		{
			name: "out of range month and day",
			resp: models.GenerationResponse{Subtasks: []models.Subtask{
				{Content: "x", Due: "2025-13-40"},
			}},
			wantErr: true,
		},
		{
			name: "non-date due string",
			resp: models.GenerationResponse{Subtasks: []models.Subtask{
				{Content: "x", Due: "yarın"},
			}},
			wantErr: true,
		},
		{
			name: "pattern check is not calendar validity",
			resp: models.GenerationResponse{Subtasks: []models.Subtask{
				{Content: "x", Due: "2025-02-31"},
			}},
		},
		{
			name: "priority too high",
			resp: models.GenerationResponse{Subtasks: []models.Subtask{
				{Content: "x", Priority: 5},
			}},
			wantErr: true,
		},
		{
			name: "priority negative",
			resp: models.GenerationResponse{Subtasks: []models.Subtask{
				{Content: "x", Priority: -1},
			}},
			wantErr: true,
		},
		{
			name: "second subtask invalid",
			resp: models.GenerationResponse{Subtasks: []models.Subtask{
				{Content: "ok"},
				{Content: "bad", Priority: 9},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateResponse(&tt.resp)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
