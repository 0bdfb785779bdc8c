package models

// StructuredCV mirrors the CV JSON produced by the model adapters.
type StructuredCV struct {
	FullName        string          `json:"fullName"`
	JobTitle        string          `json:"jobTitle"`
	PersonalDetails PersonalDetails `json:"personalDetails"`
	Profile         string          `json:"profile"`
	Experience      []Experience    `json:"experience"`
	Education       []Education     `json:"education"`
	Skills          []string        `json:"skills"`
	Interests       []string        `json:"interests"`
}

type PersonalDetails struct {
	Nationality   string   `json:"nationality"`
	Languages     []string `json:"languages"`
	DOB           string   `json:"dob,omitempty"`
	MaritalStatus string   `json:"maritalStatus"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	Location      string   `json:"location"`
}

type Experience struct {
	Role      string   `json:"role"`
	Company   string   `json:"company"`
	Location  string   `json:"location"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Bullets   []string `json:"bullets"`
}

type Education struct {
	Program     string     `json:"program"`
	Institution string     `json:"institution"`
	StartYear   FlexString `json:"startYear"`
	EndYear     FlexString `json:"endYear"`
}

// Registration mirrors the registration form JSON.
type Registration struct {
	FullName                FlexString       `json:"fullName"`
	Email                   FlexString       `json:"email"`
	Phone                   FlexString       `json:"phone"`
	Languages               FlexList         `json:"languages"`
	Nationality             FlexString       `json:"nationality"`
	DOB                     FlexString       `json:"dob"`
	Gender                  FlexString       `json:"gender"`
	PreferredPronouns       FlexString       `json:"preferredPronouns"`
	MaritalStatus           FlexString       `json:"maritalStatus"`
	Dependants              FlexString       `json:"dependants"`
	WorkInUK                FlexString       `json:"workInUk"`
	NationalInsuranceNumber FlexString       `json:"nationalInsuranceNumber"`
	UTRNumber               FlexString       `json:"utrNumber"`
	CurrentDBS              FlexString       `json:"currentDBS"`
	CriminalRecord          FlexString       `json:"criminalRecord"`
	SmokesVapes             FlexString       `json:"smokesVapes"`
	WorkWithPets            FlexString       `json:"workWithPets"`
	DrivingLicence          FlexString       `json:"drivingLicence"`
	LicenceClean            FlexString       `json:"licenceClean"`
	PositionsApplyingFor    FlexString       `json:"positionsApplyingFor"`
	YearlyDesiredSalary     FlexString       `json:"yearlyDesiredSalary"`
	CurrentNoticePeriod     FlexString       `json:"currentNoticePeriod"`
	PreferredWorkLocation   FlexString       `json:"preferredWorkLocation"`
	LiveInOrOut             FlexString       `json:"liveInOrOut"`
	EmergencyContactDetails EmergencyContact `json:"emergencyContactDetails"`
}

type EmergencyContact struct {
	Name         FlexString `json:"name"`
	Phone        FlexString `json:"phone"`
	Relationship FlexString `json:"relationship"`
}
