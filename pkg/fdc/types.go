package fdc

// Nutrient identifies a nutrient in the FDC catalog.
type Nutrient struct {
	ID       int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Number   string `json:"number,omitempty" yaml:"number,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	UnitName string `json:"unitName,omitempty" yaml:"unitName,omitempty"`
}

// FoodNutrient is one nutrient amount on a food record returned by the
// detail endpoint.
type FoodNutrient struct {
	Nutrient Nutrient `json:"nutrient" yaml:"nutrient"`
	Amount   float64  `json:"amount" yaml:"amount"`
}

// Food is a full food record.
type Food struct {
	FDCID           int64          `json:"fdcId" yaml:"fdcId"`
	Description     string         `json:"description" yaml:"description"`
	DataType        string         `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	BrandOwner      string         `json:"brandOwner,omitempty" yaml:"brandOwner,omitempty"`
	BrandName       string         `json:"brandName,omitempty" yaml:"brandName,omitempty"`
	GTINUPC         string         `json:"gtinUpc,omitempty" yaml:"gtinUpc,omitempty"`
	Ingredients     string         `json:"ingredients,omitempty" yaml:"ingredients,omitempty"`
	ServingSize     float64        `json:"servingSize,omitempty" yaml:"servingSize,omitempty"`
	ServingSizeUnit string         `json:"servingSizeUnit,omitempty" yaml:"servingSizeUnit,omitempty"`
	PublicationDate string         `json:"publicationDate,omitempty" yaml:"publicationDate,omitempty"`
	FoodNutrients   []FoodNutrient `json:"foodNutrients,omitempty" yaml:"foodNutrients,omitempty"`
}

// SearchFood is the abridged record returned by the search endpoint.
type SearchFood struct {
	FDCID       int64  `json:"fdcId" yaml:"fdcId"`
	Description string `json:"description" yaml:"description"`
	DataType    string `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	BrandOwner  string `json:"brandOwner,omitempty" yaml:"brandOwner,omitempty"`
	GTINUPC     string `json:"gtinUpc,omitempty" yaml:"gtinUpc,omitempty"`
}

// SearchResult is a single page of search hits.
type SearchResult struct {
	TotalHits   int          `json:"totalHits" yaml:"totalHits"`
	CurrentPage int          `json:"currentPage" yaml:"currentPage"`
	TotalPages  int          `json:"totalPages" yaml:"totalPages"`
	Foods       []SearchFood `json:"foods" yaml:"foods"`
}

type foodsRequest struct {
	FDCIDs []int64 `json:"fdcIds"`
}
