package product

// Patch is a partial product update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	SubTitle    *string
	Description *string
	BrandName   *string
	Price       *Price
	StrapType   *StrapType
	Variants    *[]Variant
	Images      *[]string
	CoverImage  *string
	Category    *string
	SubCategory *string
	Gender      *Gender
	Sizes       *[]Size
	Sales       *int
}

// IsEmpty reports whether the patch sets no field.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.SubTitle == nil && p.Description == nil &&
		p.BrandName == nil && p.Price == nil && p.StrapType == nil &&
		p.Variants == nil && p.Images == nil && p.CoverImage == nil &&
		p.Category == nil && p.SubCategory == nil && p.Gender == nil &&
		p.Sizes == nil && p.Sales == nil
}

// Apply copies every set field onto dst.
func (p Patch) Apply(dst *Product) {
	setIf(&dst.Title, p.Title)
	setIf(&dst.SubTitle, p.SubTitle)
	setIf(&dst.Description, p.Description)
	setIf(&dst.BrandName, p.BrandName)
	setIf(&dst.Price, p.Price)
	setIf(&dst.StrapType, p.StrapType)
	setIf(&dst.CoverImage, p.CoverImage)
	setIf(&dst.Category, p.Category)
	setIf(&dst.SubCategory, p.SubCategory)
	setIf(&dst.Gender, p.Gender)
	setIf(&dst.Sales, p.Sales)
	if p.Variants != nil {
		dst.Variants = append([]Variant(nil), (*p.Variants)...)
	}
	if p.Images != nil {
		dst.Images = append([]string(nil), (*p.Images)...)
	}
	if p.Sizes != nil {
		dst.Sizes = append([]Size(nil), (*p.Sizes)...)
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
