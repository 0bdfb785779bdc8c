package services

import "fmt"

// Stage names one of the three sequential calls a model adapter makes.
type Stage string

const (
	StageCV           Stage = "cv extraction"
	StageRegistration Stage = "registration extraction"
	StagePreview      Stage = "preview rendering"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildCVExtractionPrompt returns the system prompt for the structured CV call.
func (pb *PromptBuilder) BuildCVExtractionPrompt() string {
	return `You are an expert recruitment consultant who rewrites candidate CVs into a clean, consistent structure.

Extract the CV data into the following JSON format. Fill every section; use empty strings or empty arrays when the CV has no information:

{
  "fullName": "Full name from CV",
  "jobTitle": "Primary job title/profession",
  "personalDetails": {
    "nationality": "Nationality",
    "languages": ["Language1", "Language2"],
    "dob": "Date of birth (DD/MM/YYYY)",
    "maritalStatus": "Single/Married/etc",
    "email": "email@domain.com",
    "phone": "+XX XXX XXX XXXX",
    "location": "City, Country"
  },
  "profile": "Professional summary paragraph",
  "experience": [
    {
      "role": "Job Title",
      "company": "Company Name",
      "location": "City, Country",
      "startDate": "YYYY-MM or YYYY",
      "endDate": "YYYY-MM or YYYY or Present",
      "bullets": ["Achievement or responsibility"]
    }
  ],
  "education": [
    {
      "program": "Degree/Program name",
      "institution": "University/Institution name",
      "startYear": "YYYY",
      "endYear": "YYYY"
    }
  ],
  "skills": ["Skill 1", "Skill 2"],
  "interests": ["Interest 1", "Interest 2"]
}

Formatting rules:
- Job titles are properly capitalized
- Experience is in reverse chronological order (most recent first)
- Bullet points start with action verbs and carry no leading bullet characters
- Dates use YYYY-MM or YYYY consistently
- Drop placeholder text such as [empty]
- The profile is a paragraph, not a list

Return ONLY the JSON object, no additional text.`
}

// BuildRegistrationPrompt returns the system prompt for the registration form call.
func (pb *PromptBuilder) BuildRegistrationPrompt() string {
	return `Extract the candidate's personal and registration information from this CV into the following JSON format.
Use an empty string for anything the CV does not state. Do not guess compliance answers.

{
  "fullName": "Full name",
  "email": "email@domain.com",
  "phone": "+XX XXX XXX XXXX",
  "languages": ["Language1", "Language2"],
  "nationality": "Nationality",
  "dob": "DD/MM/YYYY",
  "gender": "",
  "preferredPronouns": "",
  "maritalStatus": "Single/Married/etc",
  "dependants": "",
  "workInUk": "Yes/No",
  "nationalInsuranceNumber": "",
  "utrNumber": "",
  "currentDBS": "Yes/No",
  "criminalRecord": "Yes/No",
  "smokesVapes": "Yes/No",
  "workWithPets": "Yes/No",
  "drivingLicence": "Yes/No",
  "licenceClean": "Yes/No",
  "positionsApplyingFor": "",
  "yearlyDesiredSalary": "",
  "currentNoticePeriod": "",
  "preferredWorkLocation": "",
  "liveInOrOut": "Live in/Live out",
  "emergencyContactDetails": {
    "name": "",
    "phone": "",
    "relationship": ""
  }
}

Return ONLY the JSON object, no additional text.`
}

// BuildPreviewPrompt returns the system prompt for the HTML preview call.
func (pb *PromptBuilder) BuildPreviewPrompt() string {
	return `Convert the structured CV JSON you are given into a clean HTML preview using the "Palatino Linotype" font family.
Match professional CV formatting with proper spacing and hierarchy:

- Center-aligned header with the name (large, bold) and job title (italic)
- Left-aligned sections with clear headings: Personal Details, Profile, Experience, Education, Key Skills, Interests
- Bullet points for experience and skills
- Inline styles only, no scripts

Return ONLY the HTML body content (no <!DOCTYPE>, <html>, <head> or <body> tags).`
}

// BuildUserContent wraps the source text for the extraction calls.
func (pb *PromptBuilder) BuildUserContent(rawText string) string {
	return fmt.Sprintf("CANDIDATE CV:\n%s", rawText)
}
