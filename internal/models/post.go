package models

import "time"

// PostCategory groups shared stories by theme.
type PostCategory string

const (
	PostCategoryOvercomingAnxiety  PostCategory = "overcoming_anxiety"
	PostCategoryAcademicStress     PostCategory = "academic_stress"
	PostCategoryPersonalGrowth     PostCategory = "personal_growth"
	PostCategoryRelationships      PostCategory = "relationships"
	PostCategorySelfCare           PostCategory = "self_care"
	PostCategoryGeneralInspiration PostCategory = "general_inspiration"
)

var postCategoryNames = map[PostCategory]string{
	PostCategoryOvercomingAnxiety:  "Overcoming Anxiety",
	PostCategoryAcademicStress:     "Academic Stress",
	PostCategoryPersonalGrowth:     "Personal Growth",
	PostCategoryRelationships:      "Relationships",
	PostCategorySelfCare:           "Self-Care",
	PostCategoryGeneralInspiration: "General Inspiration",
}

// PostCategories lists categories in display order.
var PostCategories = []PostCategory{
	PostCategoryOvercomingAnxiety,
	PostCategoryAcademicStress,
	PostCategoryPersonalGrowth,
	PostCategoryRelationships,
	PostCategorySelfCare,
	PostCategoryGeneralInspiration,
}

func (c PostCategory) Valid() bool {
	_, ok := postCategoryNames[c]
	return ok
}

func (c PostCategory) DisplayName() string {
	if name, ok := postCategoryNames[c]; ok {
		return name
	}
	return string(c)
}

// Post is a story shared by a student. Posts stay hidden until staff
// approve them.
type Post struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	AuthorID    uint         `gorm:"not null;index" json:"author_id"`
	Author      *User        `gorm:"foreignKey:AuthorID" json:"-"`
	Content     string       `gorm:"type:text;not null" json:"content"`
	Category    PostCategory `gorm:"type:varchar(30);not null;default:'general_inspiration';index" json:"category"`
	IsAnonymous bool         `gorm:"not null;default:true" json:"is_anonymous"`
	IsApproved  bool         `gorm:"not null;default:false;index" json:"is_approved"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	AuthorDisplay string `gorm:"-" json:"author_display"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// ResolveAuthorDisplay fills AuthorDisplay, hiding the author of
// anonymous posts.
func (p *Post) ResolveAuthorDisplay() {
	if p.IsAnonymous || p.Author == nil {
		p.AuthorDisplay = "Anonymous"
		return
	}
	p.AuthorDisplay = p.Author.FullName()
}
