package command

// Reply texts.
const (
	usageAdd   = "الاستخدام: /add @dev 3 (واختياري سبب)\nمثال: /add @ali 2 fix bugs"
	usageFail  = "الاستخدام: /fail @dev 1 (واختياري سبب)\nمثال: /fail @ali 1 تأخير"
	usageNotes = "الاستخدام: /notes @dev\nمثال: /notes @ali"
	notInteger = "الرقم لازم يكون عدد صحيح."
	emptyUser  = "لازم تكتب اسم المستخدم."
	resetDone  = "تم تصفير البيانات."

	addDoneFmt = "تم ✅ @%s: %+d منجز"
	addFailFmt = "تم ⚠️ @%s: %+d فشل/سقوط"

	helpText = "الأوامر:\n" +
		"/add @dev 3 (واختياري سبب) - تسجيل منجز\n" +
		"/fail @dev 1 (واختياري سبب) - تسجيل فشل/سقوط\n" +
		"/report - تقرير الديفات\n" +
		"/notes @dev - ملاحظات ديف\n" +
		"/reset - تصفير البيانات"
)
