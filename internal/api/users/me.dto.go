package users

type MeResponse struct {
	User   UserDTO   `json:"user"`
	Access AccessDTO `json:"access"`
}

type UserDTO struct {
	ID       uint    `json:"id"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Lastname string  `json:"lastname"`
	Tel      *string `json:"tel"`
	SfdID    *string `json:"sfd_id"`
}

type AccessDTO struct {
	Role           string `json:"role"`
	Label          string `json:"label"`
	SidebarVariant string `json:"sidebar_variant"`
	DefaultRoute   string `json:"default_route"`
}
