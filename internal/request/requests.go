package request

// "omitnil" marks fields that may be left out of an update; once present
// they must satisfy the rest of the rules. "omitempty" marks nullable fields
// where an empty value means "leave unchanged". "notblank" rejects text
// that is only whitespace, since stored text is trimmed.

type Login struct {
	Email      Field `json:"email" form:"email" validate:"required,email"`
	Password   Field `json:"password" form:"password" validate:"required"`
	DeviceName Field `json:"device_name" form:"device_name" validate:"omitempty,max=255"`
	Remember   Field `json:"remember" form:"remember"`
}

type Register struct {
	Name                 Field `json:"name" form:"name" validate:"required,notblank,max=255"`
	Email                Field `json:"email" form:"email" validate:"required,email,max=255"`
	Password             Field `json:"password" form:"password" validate:"required,min=8,eqfield=PasswordConfirmation"`
	PasswordConfirmation Field `json:"password_confirmation" form:"password_confirmation"`
	DeviceName           Field `json:"device_name" form:"device_name" validate:"omitempty,max=255"`
}

type StoreCategory struct {
	Name   Field  `json:"name" form:"name" validate:"required,notblank,max=255"`
	UserID *Field `json:"user_id" form:"user_id" validate:"omitempty,number"`
}

type UpdateCategory struct {
	Name   *Field `json:"name" form:"name" validate:"omitnil,required,notblank,max=255"`
	UserID *Field `json:"user_id" form:"user_id" validate:"omitempty,number"`
}

// StoreEntry creates an expense or an income. Web edit forms submit every
// field and reuse it for updates.
type StoreEntry struct {
	Amount      Field  `json:"amount" form:"amount" validate:"required,numeric,decimal_min=0"`
	Description Field  `json:"description" form:"description" validate:"required,notblank,max=255"`
	Date        Field  `json:"date" form:"date" validate:"required,date"`
	CategoryID  Field  `json:"category_id" form:"category_id" validate:"required,number"`
	UserID      *Field `json:"user_id" form:"user_id" validate:"omitempty,number"`
}

type UpdateEntry struct {
	Amount      *Field `json:"amount" form:"amount" validate:"omitnil,required,numeric,decimal_min=0"`
	Description *Field `json:"description" form:"description" validate:"omitnil,required,notblank,max=255"`
	Date        *Field `json:"date" form:"date" validate:"omitnil,required,date"`
	CategoryID  *Field `json:"category_id" form:"category_id" validate:"omitnil,required,number"`
}

// Update converts a full submission into the partial form.
func (s StoreEntry) Update() UpdateEntry {
	return UpdateEntry{Amount: &s.Amount, Description: &s.Description, Date: &s.Date, CategoryID: &s.CategoryID}
}

type StoreUser struct {
	Name                 Field `json:"name" form:"name" validate:"required,notblank,max=255"`
	Email                Field `json:"email" form:"email" validate:"required,email,max=255"`
	Password             Field `json:"password" form:"password" validate:"required,min=8,eqfield=PasswordConfirmation"`
	PasswordConfirmation Field `json:"password_confirmation" form:"password_confirmation"`
	Role                 Field `json:"role" form:"role" validate:"omitempty,role"`
	IsActive             Field `json:"is_active" form:"is_active" validate:"omitempty,boolean"`
}

type UpdateUser struct {
	Name                 *Field `json:"name" form:"name" validate:"omitnil,required,notblank,max=255"`
	Email                *Field `json:"email" form:"email" validate:"omitnil,required,email,max=255"`
	Password             *Field `json:"password" form:"password" validate:"omitempty,min=8,eqfield=PasswordConfirmation"`
	PasswordConfirmation *Field `json:"password_confirmation" form:"password_confirmation"`
	Role                 *Field `json:"role" form:"role" validate:"omitempty,role"`
	IsActive             *Field `json:"is_active" form:"is_active" validate:"omitempty,boolean"`
}

// UpdateRole is the only change an admin can make to another account from
// the web user screens.
type UpdateRole struct {
	Role Field `json:"role" form:"role" validate:"required,role"`
}

type UpdateProfile struct {
	Name                 *Field `json:"name" form:"name" validate:"omitnil,required,notblank,max=255"`
	Email                *Field `json:"email" form:"email" validate:"omitnil,required,email,max=255"`
	Password             *Field `json:"password" form:"password" validate:"omitempty,min=8,eqfield=PasswordConfirmation"`
	PasswordConfirmation *Field `json:"password_confirmation" form:"password_confirmation"`
}

type DeleteProfile struct {
	Password Field `json:"password" form:"password" validate:"required"`
}
