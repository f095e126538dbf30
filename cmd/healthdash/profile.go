// ABOUTME: CLI commands for the health profile.
// ABOUTME: 'profile' shows it with age and BMI, 'profile set' updates the fields given.
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthdash/internal/models"
	"github.com/harperreed/healthdash/internal/storage"
)

var (
	profileForm models.HealthProfile
	profileDOB  string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the health profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		p, err := repo.GetProfile(cmd.Context(), sess.UserID)
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Println("No profile yet. Fill it in with 'healthdash profile set'.")
			return nil
		}
		if err != nil {
			return err
		}
		printProfile(p)
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the health profile",
	Long: `Update profile fields. Fields not given keep their saved value.

Examples:
  healthdash profile set --name Sam --dob 1970-03-15 --gender female
  healthdash profile set --height 175 --weight 80 --smoking no --exercise moderate
  healthdash profile set --conditions hypertension,asthma`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		p, err := repo.GetProfile(cmd.Context(), sess.UserID)
		if errors.Is(err, storage.ErrNotFound) {
			p = &models.HealthProfile{UserID: sess.UserID}
		} else if err != nil {
			return err
		}

		if err := mergeProfileFlags(cmd, p); err != nil {
			return err
		}
		p.UpdatedAt = now()
		if err := repo.UpsertProfile(cmd.Context(), p); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		color.Green("✓ Profile saved")
		printProfile(p)
		return nil
	},
}

func mergeProfileFlags(cmd *cobra.Command, p *models.HealthProfile) error {
	f := cmd.Flags()
	if f.Changed("dob") {
		dob, err := parseTime(profileDOB)
		if err != nil {
			return fmt.Errorf("invalid --dob: %s (use YYYY-MM-DD)", profileDOB)
		}
		p.DateOfBirth = dob
	}
	if profileForm.HeightCm < 0 || profileForm.WeightKg < 0 {
		return errors.New("height and weight cannot be negative")
	}

	strs := map[string]*string{
		"name":       &p.Name,
		"gender":     &p.Gender,
		"blood-type": &p.BloodType,
		"ethnicity":  &p.Ethnicity,
		"smoking":    &p.Lifestyle.Smoking,
		"alcohol":    &p.Lifestyle.Alcohol,
		"exercise":   &p.Lifestyle.Exercise,
		"diet":       &p.Lifestyle.Diet,
		"sleep":      &p.Lifestyle.Sleep,
		"stress":     &p.Lifestyle.Stress,
	}
	src := map[string]string{
		"name":       profileForm.Name,
		"gender":     strings.ToLower(profileForm.Gender),
		"blood-type": profileForm.BloodType,
		"ethnicity":  profileForm.Ethnicity,
		"smoking":    strings.ToLower(profileForm.Lifestyle.Smoking),
		"alcohol":    strings.ToLower(profileForm.Lifestyle.Alcohol),
		"exercise":   strings.ToLower(profileForm.Lifestyle.Exercise),
		"diet":       profileForm.Lifestyle.Diet,
		"sleep":      profileForm.Lifestyle.Sleep,
		"stress":     profileForm.Lifestyle.Stress,
	}
	for name, dst := range strs {
		if f.Changed(name) {
			*dst = strings.TrimSpace(src[name])
		}
	}

	if f.Changed("height") {
		p.HeightCm = profileForm.HeightCm
	}
	if f.Changed("weight") {
		p.WeightKg = profileForm.WeightKg
	}
	if f.Changed("conditions") {
		p.ExistingConditions = profileForm.ExistingConditions
	}
	if f.Changed("medications") {
		p.Medications = profileForm.Medications
	}
	if f.Changed("allergies") {
		p.Allergies = profileForm.Allergies
	}
	if f.Changed("family-history") {
		p.FamilyHistory = profileForm.FamilyHistory
	}
	if f.Changed("risk-factors") {
		p.RiskFactors = profileForm.RiskFactors
	}
	return nil
}

func printProfile(p *models.HealthProfile) {
	faint := color.New(color.Faint)
	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Printf("  %s %s\n", faint.Sprint(padRight(label+":", 16)), value)
	}

	name := p.Name
	if name == "" {
		name = "Health profile"
	}
	fmt.Println(color.New(color.Bold).Sprint(name))
	if age := p.Age(now()); age > 0 {
		field("Age", fmt.Sprintf("%d (born %s)", age, p.DateOfBirth.Format("2006-01-02")))
	}
	field("Gender", p.Gender)
	if p.HeightCm > 0 {
		field("Height", fmt.Sprintf("%.0f cm", p.HeightCm))
	}
	if p.WeightKg > 0 {
		field("Weight", fmt.Sprintf("%.1f kg", p.WeightKg))
	}
	if bmi, ok := models.BMI(p.WeightKg, p.HeightCm); ok {
		field("BMI", fmt.Sprintf("%.1f", models.RoundTo(bmi, 1)))
	}
	field("Blood type", p.BloodType)
	field("Conditions", strings.Join(p.ExistingConditions, ", "))
	field("Medications", strings.Join(p.Medications, ", "))
	field("Allergies", strings.Join(p.Allergies, ", "))
	field("Family history", strings.Join(p.FamilyHistory, ", "))
	field("Ethnicity", p.Ethnicity)
	field("Risk factors", strings.Join(p.RiskFactors, ", "))
	field("Smoking", p.Lifestyle.Smoking)
	field("Alcohol", p.Lifestyle.Alcohol)
	field("Exercise", p.Lifestyle.Exercise)
	field("Diet", p.Lifestyle.Diet)
	field("Sleep", p.Lifestyle.Sleep)
	field("Stress", p.Lifestyle.Stress)
}

func init() {
	f := profileSetCmd.Flags()
	f.StringVar(&profileForm.Name, "name", "", "display name")
	f.StringVar(&profileDOB, "dob", "", "date of birth (YYYY-MM-DD)")
	f.StringVar(&profileForm.Gender, "gender", "", "gender (male, female, other)")
	f.Float64Var(&profileForm.HeightCm, "height", 0, "height (cm)")
	f.Float64Var(&profileForm.WeightKg, "weight", 0, "weight (kg)")
	f.StringVar(&profileForm.BloodType, "blood-type", "", "blood type (e.g. O+)")
	f.StringSliceVar(&profileForm.ExistingConditions, "conditions", nil, "existing conditions")
	f.StringSliceVar(&profileForm.Medications, "medications", nil, "current medications")
	f.StringSliceVar(&profileForm.Allergies, "allergies", nil, "allergies")
	f.StringSliceVar(&profileForm.FamilyHistory, "family-history", nil, "family history")
	f.StringVar(&profileForm.Ethnicity, "ethnicity", "", "ethnicity")
	f.StringSliceVar(&profileForm.RiskFactors, "risk-factors", nil, "genetic risk factors (e.g. \"APOE4 variant\")")
	f.StringVar(&profileForm.Lifestyle.Smoking, "smoking", "", "no, former, occasional or daily")
	f.StringVar(&profileForm.Lifestyle.Alcohol, "alcohol", "", "none, occasional, moderate or heavy")
	f.StringVar(&profileForm.Lifestyle.Exercise, "exercise", "", "none, light, moderate or intense")
	f.StringVar(&profileForm.Lifestyle.Diet, "diet", "", "diet description")
	f.StringVar(&profileForm.Lifestyle.Sleep, "sleep", "", "usual sleep (<5, 5-6, 7-8, 9+)")
	f.StringVar(&profileForm.Lifestyle.Stress, "stress", "", "stress level")

	profileCmd.AddCommand(profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}
