package composer

type createComposerRequest struct {
	Type        string `json:"type" validate:"required,max=64"`
	TypeID      string `json:"type_id" validate:"max=100"`
	ExtraTypeID *int64 `json:"extra_type_id" validate:"omitempty,gt=0"`
}

type setSubjectRequest struct {
	TypeID string `json:"type_id" validate:"required,max=100"`
}

type setTextRequest struct {
	Text string `json:"text" validate:"max=65535"`
}
