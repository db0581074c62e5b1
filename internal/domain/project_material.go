package domain

// ProjectMaterial links one material to one project with a quantity.
// There is at most one row per (ProjectID, MaterialID).
type ProjectMaterial struct {
	// ID is the unique identifier for the link (auto-generated).
	ID int64 `json:"id"`

	// ProjectID is the owning project.
	ProjectID int64 `json:"projectId"`

	// MaterialID is the referenced catalog material.
	MaterialID int64 `json:"materialId"`

	// Amount is the required quantity. Never negative.
	Amount float64 `json:"amount"`
}

// ProjectMaterialView is a link joined with the material's display fields.
type ProjectMaterialView struct {
	ID           int64   `json:"id"`
	ProjectID    int64   `json:"projectId"`
	MaterialID   int64   `json:"materialId"`
	MaterialName string  `json:"materialName"`
	MarketID     string  `json:"marketId"`
	Amount       float64 `json:"amount"`
}

// NewProjectMaterialView builds a view from a link and its material.
func NewProjectMaterialView(pm *ProjectMaterial, m *Material) *ProjectMaterialView {
	return &ProjectMaterialView{
		ID:           pm.ID,
		ProjectID:    pm.ProjectID,
		MaterialID:   pm.MaterialID,
		MaterialName: m.Name,
		MarketID:     m.MarketID,
		Amount:       pm.Amount,
	}
}
